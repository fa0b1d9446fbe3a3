package guardian

import (
	"fmt"

	types "github.com/hostguard/guardian-backend/internal/domain"
)

func SeverityFor(risk float64) string {
	switch {
	case risk >= 0.95:
		return types.SeverityCritical
	case risk >= 0.90:
		return types.SeverityHigh
	case risk >= 0.85:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

func AlertTypeFor(v Verdict) string {
	if v.InsufficientInfo {
		return types.AlertTypeInsufficientInfo
	}
	return types.AlertTypeNegativeReviewRisk
}

func urgency(risk float64) (label, emoji string) {
	switch {
	case risk >= 0.95:
		return "CRITICO", "🚨"
	case risk >= 0.90:
		return "ALTO", "⚠️"
	default:
		return "MEDIO", "⚠️"
	}
}

func formatPercent(risk float64) string {
	return fmt.Sprintf("%.1f%%", risk*100)
}

// AlertMessage renders the host-facing alert headline.
func AlertMessage(conversationID string, v Verdict) string {
	label, emoji := urgency(v.RiskScore)
	if v.InsufficientInfo {
		return fmt.Sprintf(
			"%s ALERT %s: Chatbot senza informazioni sufficienti nella conversazione #%s. Rischio: %s. Il chatbot ha risposto con mancanza di informazioni.",
			emoji, label, conversationID, formatPercent(v.RiskScore),
		)
	}
	return fmt.Sprintf(
		"%s ALERT %s: Ospite insoddisfatto rilevato nella conversazione #%s. Rischio recensione negativa: %s. Sentiment: %.2f.",
		emoji, label, conversationID, formatPercent(v.RiskScore), v.SentimentScore,
	)
}
