package guardian

import (
	"testing"

	"github.com/stretchr/testify/assert"

	types "github.com/hostguard/guardian-backend/internal/domain"
)

func TestSuggestedAction(t *testing.T) {
	tests := []struct {
		name   string
		v      Verdict
		expect ActionKind
	}{
		{"insufficient info wins over issues", Verdict{InsufficientInfo: true, Details: types.AnalysisDetails{KeyIssues: []string{"wifi"}}}, ActionInsufficientInfo},
		{"wifi", Verdict{Details: types.AnalysisDetails{KeyIssues: []string{"Il WiFi non funziona"}}}, ActionWifi},
		{"cleanliness", Verdict{Details: types.AnalysisDetails{KeyIssues: []string{"Scarsa PULIZIA del bagno"}}}, ActionCleanliness},
		{"noise", Verdict{Details: types.AnalysisDetails{KeyIssues: []string{"rumore dalla strada"}}}, ActionNoise},
		{"rule order beats issue order", Verdict{Details: types.AnalysisDetails{KeyIssues: []string{"rumore", "wifi lento"}}}, ActionWifi},
		{"generic", Verdict{Details: types.AnalysisDetails{KeyIssues: []string{"check-in in ritardo"}}}, ActionGeneric},
		{"no issues", Verdict{}, ActionNoIssues},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, classifyAction(tt.v))
			assert.Equal(t, actionTexts[tt.expect], SuggestedAction(tt.v))
		})
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		risk float64
		want string
	}{
		{1.0, types.SeverityCritical},
		{0.95, types.SeverityCritical},
		{0.9499, types.SeverityHigh},
		{0.90, types.SeverityHigh},
		{0.851, types.SeverityMedium},
		{0.85, types.SeverityMedium},
		{0.5, types.SeverityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFor(tt.risk), "risk %v", tt.risk)
	}
}

func TestAlertMessage(t *testing.T) {
	msg := AlertMessage("abc", Verdict{RiskScore: 0.96, SentimentScore: -0.8})
	assert.Equal(t, "🚨 ALERT CRITICO: Ospite insoddisfatto rilevato nella conversazione #abc. Rischio recensione negativa: 96.0%. Sentiment: -0.80.", msg)

	msg = AlertMessage("abc", Verdict{RiskScore: 0.85, InsufficientInfo: true})
	assert.Equal(t, "⚠️ ALERT MEDIO: Chatbot senza informazioni sufficienti nella conversazione #abc. Rischio: 85.0%. Il chatbot ha risposto con mancanza di informazioni.", msg)

	msg = AlertMessage("abc", Verdict{RiskScore: 0.91})
	assert.Contains(t, msg, "ALERT ALTO")

	assert.Equal(t, types.AlertTypeInsufficientInfo, AlertTypeFor(Verdict{InsufficientInfo: true}))
	assert.Equal(t, types.AlertTypeNegativeReviewRisk, AlertTypeFor(Verdict{RiskScore: 0.99}))
}

func TestCatalog(t *testing.T) {
	cat, err := loadCatalog(localesYAML)
	if err != nil {
		t.Fatalf("loadCatalog: %v", err)
	}
	assert.Equal(t, cat["en"], cat.lookup("en-GB"))
	assert.Equal(t, cat["de"], cat.lookup("DE"))
	assert.Equal(t, cat[types.DefaultLanguage], cat.lookup("fr"))
	assert.Equal(t, cat[types.DefaultLanguage], cat.lookup(""))
	for lang, s := range cat {
		assert.NotEmpty(t, s.Alert.Subject, lang)
		assert.NotEmpty(t, s.Guest.Subject, lang)
		assert.NotEmpty(t, s.SMS, lang)
	}

	_, err = loadCatalog([]byte("en:\n  sms: hi\n"))
	assert.Error(t, err)

	assert.Equal(t, "Ciao Anna, #1234", fill("Ciao {name}, #{conversation}", map[string]string{"name": "Anna", "conversation": "1234"}))
}
