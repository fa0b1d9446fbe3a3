package guardian

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	types "github.com/hostguard/guardian-backend/internal/domain"
)

// Verdict is the classifier's typed output for one exchange.
type Verdict struct {
	RiskScore        float64               `json:"risk_score"`
	SentimentScore   float64               `json:"sentiment_score"`
	ConfidenceScore  float64               `json:"confidence_score"`
	InsufficientInfo bool                  `json:"insufficient_info"`
	Details          types.AnalysisDetails `json:"analysis_details"`
}

// Flagged reports whether the verdict calls for an alert.
func (v Verdict) Flagged() bool {
	return v.InsufficientInfo || v.RiskScore >= RiskThreshold
}

const (
	reasonNoUserMessage = "no user message to analyze"
	reasonFallback      = "automatic analysis error"
)

// FallbackVerdict is returned whenever the backend cannot produce a usable
// verdict.
func FallbackVerdict() Verdict {
	return Verdict{
		RiskScore:       0.5,
		SentimentScore:  0.0,
		ConfidenceScore: 0.5,
		Details: types.AnalysisDetails{
			Reasoning:        reasonFallback,
			KeyIssues:        []string{"technical error"},
			SentimentFactors: []string{"analysis unavailable"},
		},
	}
}

func emptyVerdict() Verdict {
	return Verdict{
		Details: types.AnalysisDetails{
			Reasoning:        reasonNoUserMessage,
			KeyIssues:        []string{},
			SentimentFactors: []string{},
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalize clamps scores into range and applies the insufficient-info floor.
func (v Verdict) normalize() Verdict {
	v.RiskScore = clamp(v.RiskScore, 0, 1)
	v.SentimentScore = clamp(v.SentimentScore, -1, 1)
	v.ConfidenceScore = clamp(v.ConfidenceScore, 0, 1)
	if v.InsufficientInfo && v.RiskScore < InsufficientInfoFloor {
		v.RiskScore = InsufficientInfoFloor
	}
	if v.Details.KeyIssues == nil {
		v.Details.KeyIssues = []string{}
	}
	if v.Details.SentimentFactors == nil {
		v.Details.SentimentFactors = []string{}
	}
	if !v.InsufficientInfo {
		v.Details.InsufficientInfoReason = ""
	}
	return v
}

var errEmptyOutput = errors.New("empty classifier output")

// rawVerdict accepts the backend's JSON loosely: details may come nested or
// flattened at the top level.
type rawVerdict struct {
	RiskScore              *float64               `json:"risk_score"`
	SentimentScore         *float64               `json:"sentiment_score"`
	ConfidenceScore        *float64               `json:"confidence_score"`
	InsufficientInfo       bool                   `json:"insufficient_info"`
	AnalysisDetails        *types.AnalysisDetails `json:"analysis_details"`
	Reasoning              string                 `json:"reasoning"`
	KeyIssues              []string               `json:"key_issues"`
	SentimentFactors       []string               `json:"sentiment_factors"`
	InsufficientInfoReason string                 `json:"insufficient_info_reason"`
}

func parseVerdict(out string) (Verdict, error) {
	body := stripCodeFence(out)
	if body == "" {
		return Verdict{}, errEmptyOutput
	}
	var raw rawVerdict
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if raw.RiskScore == nil {
		return Verdict{}, fmt.Errorf("decode verdict: missing risk_score")
	}

	v := Verdict{
		RiskScore:        *raw.RiskScore,
		InsufficientInfo: raw.InsufficientInfo,
	}
	if raw.SentimentScore != nil {
		v.SentimentScore = *raw.SentimentScore
	}
	if raw.ConfidenceScore != nil {
		v.ConfidenceScore = *raw.ConfidenceScore
	}
	if raw.AnalysisDetails != nil {
		v.Details = *raw.AnalysisDetails
	} else {
		v.Details = types.AnalysisDetails{
			Reasoning:              raw.Reasoning,
			KeyIssues:              raw.KeyIssues,
			SentimentFactors:       raw.SentimentFactors,
			InsufficientInfoReason: raw.InsufficientInfoReason,
		}
	}
	return v.normalize(), nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
