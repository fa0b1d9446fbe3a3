package domain

import (
	"github.com/hostguard/guardian-backend/internal/domain/chat"
	"github.com/hostguard/guardian-backend/internal/domain/guardian"
	"github.com/hostguard/guardian-backend/internal/domain/user"
)

const (
	RoleUser      = chat.RoleUser
	RoleAssistant = chat.RoleAssistant

	AlertTypeNegativeReviewRisk = guardian.AlertTypeNegativeReviewRisk
	AlertTypeInsufficientInfo   = guardian.AlertTypeInsufficientInfo

	SeverityCritical = guardian.SeverityCritical
	SeverityHigh     = guardian.SeverityHigh
	SeverityMedium   = guardian.SeverityMedium
	SeverityLow      = guardian.SeverityLow

	DefaultLanguage = user.DefaultLanguage
)

type User = user.User

type Chatbot = chat.Chatbot
type Guest = chat.Guest
type Conversation = chat.Conversation
type Message = chat.Message

type GuardianAnalysis = guardian.GuardianAnalysis
type GuardianAlert = guardian.GuardianAlert
type AnalysisDetails = guardian.AnalysisDetails

var EncodeDetails = guardian.EncodeDetails

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Chatbot{},
		&Guest{},
		&Conversation{},
		&Message{},
		&GuardianAnalysis{},
		&GuardianAlert{},
	}
}
