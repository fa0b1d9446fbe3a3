package app

import (
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type Repos struct {
	User         repos.UserRepo
	Chatbot      repos.ChatbotRepo
	Guest        repos.GuestRepo
	Conversation repos.ConversationRepo
	Message      repos.MessageRepo
	Analysis     repos.GuardianAnalysisRepo
	Alert        repos.GuardianAlertRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Chatbot:      repos.NewChatbotRepo(db, log),
		Guest:        repos.NewGuestRepo(db, log),
		Conversation: repos.NewConversationRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
		Analysis:     repos.NewGuardianAnalysisRepo(db, log),
		Alert:        repos.NewGuardianAlertRepo(db, log),
	}
}
