package guardian

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisDetails is the structured explanation attached to a verdict.
type AnalysisDetails struct {
	Reasoning              string   `json:"reasoning"`
	KeyIssues              []string `json:"key_issues"`
	SentimentFactors       []string `json:"sentiment_factors"`
	InsufficientInfoReason string   `json:"insufficient_info_reason,omitempty"`
}

// GuardianAnalysis records one classifier run over one exchange. Rows are
// append-only.
type GuardianAnalysis struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`

	RiskScore        float64 `gorm:"column:risk_score;not null" json:"risk_score"`
	SentimentScore   float64 `gorm:"column:sentiment_score;not null" json:"sentiment_score"`
	ConfidenceScore  float64 `gorm:"column:confidence_score;not null" json:"confidence_score"`
	InsufficientInfo bool    `gorm:"column:insufficient_info;not null" json:"insufficient_info"`

	AnalysisDetails datatypes.JSON `gorm:"type:jsonb;column:analysis_details;not null" json:"analysis_details"`

	UserMessagesAnalyzed int `gorm:"column:user_messages_analyzed;not null" json:"user_messages_analyzed"`
	ConversationLength   int `gorm:"column:conversation_length;not null" json:"conversation_length"`

	AnalyzedAt time.Time `gorm:"column:analyzed_at;not null;index" json:"analyzed_at"`
}

func (GuardianAnalysis) TableName() string { return "guardian_analysis" }

func (a *GuardianAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now().UTC()
	}
	return nil
}

func (a *GuardianAnalysis) Details() (AnalysisDetails, error) {
	var d AnalysisDetails
	if a == nil || len(a.AnalysisDetails) == 0 {
		return d, nil
	}
	err := json.Unmarshal(a.AnalysisDetails, &d)
	return d, err
}

func EncodeDetails(d AnalysisDetails) (datatypes.JSON, error) {
	if d.KeyIssues == nil {
		d.KeyIssues = []string{}
	}
	if d.SentimentFactors == nil {
		d.SentimentFactors = []string{}
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
