package repos

import (
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos/chat"
	"github.com/hostguard/guardian-backend/internal/data/repos/guardian"
	"github.com/hostguard/guardian-backend/internal/data/repos/user"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo

type ChatbotRepo = chat.ChatbotRepo
type GuestRepo = chat.GuestRepo
type ConversationRepo = chat.ConversationRepo
type MessageRepo = chat.MessageRepo

type GuardianAnalysisRepo = guardian.GuardianAnalysisRepo
type GuardianAlertRepo = guardian.GuardianAlertRepo
type AlertListFilter = guardian.AlertListFilter

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewChatbotRepo(db *gorm.DB, baseLog *logger.Logger) ChatbotRepo {
	return chat.NewChatbotRepo(db, baseLog)
}
func NewGuestRepo(db *gorm.DB, baseLog *logger.Logger) GuestRepo {
	return chat.NewGuestRepo(db, baseLog)
}
func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return chat.NewConversationRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}

func NewGuardianAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) GuardianAnalysisRepo {
	return guardian.NewGuardianAnalysisRepo(db, baseLog)
}
func NewGuardianAlertRepo(db *gorm.DB, baseLog *logger.Logger) GuardianAlertRepo {
	return guardian.NewGuardianAlertRepo(db, baseLog)
}
