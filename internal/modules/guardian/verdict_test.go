package guardian

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostguard/guardian-backend/internal/data/repos/testutil"
	types "github.com/hostguard/guardian-backend/internal/domain"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantRisk  float64
		wantSent  float64
		wantConf  float64
		wantInfo  bool
		wantIssue []string
		wantErr   bool
	}{
		{
			name:      "nested details",
			in:        wifiVerdictJSON,
			wantRisk:  0.96,
			wantSent:  -0.8,
			wantConf:  0.9,
			wantIssue: []string{"WiFi non funziona"},
		},
		{
			name:      "flattened details in a code fence",
			in:        "```json\n{\"risk_score\": 0.4, \"sentiment_score\": 0.1, \"confidence_score\": 0.7, \"key_issues\": [\"rumore\"]}\n```",
			wantRisk:  0.4,
			wantSent:  0.1,
			wantConf:  0.7,
			wantIssue: []string{"rumore"},
		},
		{
			name:      "out of range scores are clamped",
			in:        `{"risk_score": 1.7, "sentiment_score": -3, "confidence_score": -0.2}`,
			wantRisk:  1,
			wantSent:  -1,
			wantConf:  0,
			wantIssue: []string{},
		},
		{
			name:      "insufficient info raises risk to the floor",
			in:        `{"risk_score": 0.80, "sentiment_score": -0.2, "confidence_score": 0.6, "insufficient_info": true}`,
			wantRisk:  InsufficientInfoFloor,
			wantSent:  -0.2,
			wantConf:  0.6,
			wantInfo:  true,
			wantIssue: []string{},
		},
		{
			name:      "insufficient info keeps a higher risk",
			in:        `{"risk_score": 0.97, "insufficient_info": true}`,
			wantRisk:  0.97,
			wantInfo:  true,
			wantIssue: []string{},
		},
		{name: "missing risk score", in: `{"sentiment_score": 0.3}`, wantErr: true},
		{name: "not json", in: "the guest seems fine", wantErr: true},
		{name: "empty", in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRisk, v.RiskScore, 1e-9)
			assert.InDelta(t, tt.wantSent, v.SentimentScore, 1e-9)
			assert.InDelta(t, tt.wantConf, v.ConfidenceScore, 1e-9)
			assert.Equal(t, tt.wantInfo, v.InsufficientInfo)
			assert.Equal(t, tt.wantIssue, v.Details.KeyIssues)
			assert.NotNil(t, v.Details.SentimentFactors)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}

func TestVerdictFlagged(t *testing.T) {
	assert.True(t, Verdict{RiskScore: RiskThreshold}.Flagged())
	assert.False(t, Verdict{RiskScore: 0.85}.Flagged())
	assert.True(t, Verdict{RiskScore: 0.85, InsufficientInfo: true}.Flagged())
	assert.False(t, FallbackVerdict().Flagged())
}

func TestRiskClassifier(t *testing.T) {
	log := testutil.Logger(t)
	at := time.Date(2025, 7, 14, 21, 5, 0, 0, time.UTC)
	user := &types.Message{Role: types.RoleUser, Content: "Il WiFi non funziona!", CreatedAt: at}
	assistant := &types.Message{Role: types.RoleAssistant, Content: "Mi dispiace, riavvia il router.", CreatedAt: at.Add(time.Minute)}

	t.Run("no user message skips the backend", func(t *testing.T) {
		backend := &stubBackend{out: wifiVerdictJSON}
		c := NewRiskClassifier(backend, log, Config{}, nil)
		v := c.Classify(context.Background(), Exchange{Assistant: assistant})
		assert.Equal(t, 0, backend.Calls())
		assert.Zero(t, v.RiskScore)
		assert.Equal(t, reasonNoUserMessage, v.Details.Reasoning)
	})

	t.Run("valid output", func(t *testing.T) {
		backend := &stubBackend{out: wifiVerdictJSON}
		c := NewRiskClassifier(backend, log, Config{Location: time.UTC}, nil)
		v := c.Classify(context.Background(), Exchange{User: user, Assistant: assistant})
		assert.Equal(t, 1, backend.Calls())
		assert.InDelta(t, 0.96, v.RiskScore, 1e-9)
		assert.Equal(t, "Guest (21:05): Il WiFi non funziona!\n\nChatbot (21:06): Mi dispiace, riavvia il router.", backend.lastUser)
	})

	t.Run("backend error falls back", func(t *testing.T) {
		c := NewRiskClassifier(&stubBackend{err: errStub}, log, Config{}, nil)
		v := c.Classify(context.Background(), Exchange{User: user})
		assert.Equal(t, FallbackVerdict(), v)
		assert.Equal(t, []string{"technical error"}, v.Details.KeyIssues)
	})

	t.Run("unparseable output falls back", func(t *testing.T) {
		c := NewRiskClassifier(&stubBackend{out: "sorry, I can't help"}, log, Config{}, nil)
		assert.Equal(t, FallbackVerdict(), c.Classify(context.Background(), Exchange{User: user}))
	})

	t.Run("missing backend falls back", func(t *testing.T) {
		c := NewRiskClassifier(nil, log, Config{}, nil)
		assert.Equal(t, FallbackVerdict(), c.Classify(context.Background(), Exchange{User: user}))
	})
}

func TestExchangeSummary(t *testing.T) {
	at := time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)
	long := strings.Repeat("è", 250)
	short := strings.Repeat("a", 150)

	ex := Exchange{
		User:      &types.Message{Content: long, CreatedAt: at},
		Assistant: &types.Message{Content: short, CreatedAt: at.Add(2 * time.Minute)},
	}
	want := "[09:30] Ospite: " + strings.Repeat("è", 200) + "...\n[09:32] Chatbot: " + short
	assert.Equal(t, want, ex.Summary(time.UTC))

	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ex.Summary(rome), "[11:30] Ospite: "))

	assert.Equal(t, "No message available", Exchange{}.Summary(time.UTC))
	assert.Equal(t, "", Exchange{}.ClassifierInput(time.UTC))
}

func TestPairExchange(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	guest := &types.Message{Content: "il wifi non funziona", CreatedAt: at}
	reply := &types.Message{Content: "Riavvia il router.", CreatedAt: at.Add(time.Minute)}
	stale := &types.Message{Content: "Il check-in è dalle 15:00.", CreatedAt: at.Add(-59 * time.Minute)}
	same := &types.Message{Content: "eco", CreatedAt: at}

	assert.Equal(t, Exchange{User: guest, Assistant: reply}, pairExchange(guest, reply))
	assert.Equal(t, Exchange{User: guest}, pairExchange(guest, stale))
	assert.Equal(t, Exchange{User: guest}, pairExchange(guest, same))
	assert.Equal(t, Exchange{User: guest}, pairExchange(guest, nil))
	assert.Equal(t, Exchange{}, pairExchange(nil, reply))

	ex := pairExchange(guest, stale)
	assert.Equal(t, "Guest (10:00): il wifi non funziona", ex.ClassifierInput(time.UTC))
	assert.Equal(t, "[10:00] Ospite: il wifi non funziona", ex.Summary(time.UTC))
}
