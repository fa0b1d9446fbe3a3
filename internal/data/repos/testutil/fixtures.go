package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hostguard/guardian-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:                 uuid.New(),
		Email:              email,
		FirstName:          "Anna",
		LastName:           "Rossi",
		Language:           "it",
		SubscriptionStatus: "active",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedChatbot(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Chatbot {
	tb.Helper()
	cb := &types.Chatbot{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        "Casa Vacanze",
		AssistantID: "asst_test",
	}
	if err := tx.WithContext(ctx).Create(cb).Error; err != nil {
		tb.Fatalf("seed chatbot: %v", err)
	}
	return cb
}

func SeedGuest(tb testing.TB, ctx context.Context, tx *gorm.DB, email, language string) *types.Guest {
	tb.Helper()
	g := &types.Guest{
		ID:       uuid.New(),
		Name:     "Mario",
		Email:    email,
		Language: language,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed guest: %v", err)
	}
	return g
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID, guestID *uuid.UUID) *types.Conversation {
	tb.Helper()
	c := &types.Conversation{
		ID:        uuid.New(),
		ChatbotID: chatbotID,
		GuestID:   guestID,
		ThreadID:  "thread_" + uuid.NewString()[:8],
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, role, content string, at time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      at,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedAlert(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, conversationID uuid.UUID, risk float64, resolved bool) *types.GuardianAlert {
	tb.Helper()
	a := &types.GuardianAlert{
		ID:                  uuid.New(),
		UserID:              userID,
		ConversationID:      conversationID,
		AlertType:           types.AlertTypeNegativeReviewRisk,
		Severity:            types.SeverityHigh,
		RiskScore:           risk,
		Message:             "alert",
		SuggestedAction:     "action",
		ConversationSummary: "summary",
		IsResolved:          resolved,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed alert: %v", err)
	}
	return a
}
