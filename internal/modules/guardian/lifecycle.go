package guardian

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type AlertLifecycleManager interface {
	// Resolve marks an alert handled. A missing alert yields false.
	Resolve(ctx context.Context, alertID uuid.UUID, resolvedBy string) bool
	// ResolveForUser is Resolve restricted to alerts owned by userID.
	ResolveForUser(ctx context.Context, userID, alertID uuid.UUID, resolvedBy string) bool
	// NotifyGuest emails the conversation transcript plus the host's reply to
	// the guest. A guest without an email yields false, nil.
	NotifyGuest(ctx context.Context, conversationID uuid.UUID, hostResponse string) (bool, error)
}

type alertLifecycleManager struct {
	db            *gorm.DB
	log           *logger.Logger
	alerts        repos.GuardianAlertRepo
	conversations repos.ConversationRepo
	chatbots      repos.ChatbotRepo
	guests        repos.GuestRepo
	messages      repos.MessageRepo
	email         EmailSender
	catalog       catalog
	cfg           Config
	metrics       Metrics
	now           func() time.Time
}

func NewAlertLifecycleManager(
	db *gorm.DB,
	log *logger.Logger,
	alerts repos.GuardianAlertRepo,
	conversations repos.ConversationRepo,
	chatbots repos.ChatbotRepo,
	guests repos.GuestRepo,
	messages repos.MessageRepo,
	email EmailSender,
	cfg Config,
	metrics Metrics,
) (AlertLifecycleManager, error) {
	cat, err := loadCatalog(localesYAML)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &alertLifecycleManager{
		db:            db,
		log:           log.With("service", "AlertLifecycleManager"),
		alerts:        alerts,
		conversations: conversations,
		chatbots:      chatbots,
		guests:        guests,
		messages:      messages,
		email:         email,
		catalog:       cat,
		cfg:           cfg.withDefaults(),
		metrics:       metrics,
		now:           time.Now,
	}, nil
}

func (m *alertLifecycleManager) Resolve(ctx context.Context, alertID uuid.UUID, resolvedBy string) bool {
	return m.resolve(ctx, uuid.Nil, alertID, resolvedBy)
}

func (m *alertLifecycleManager) ResolveForUser(ctx context.Context, userID, alertID uuid.UUID, resolvedBy string) bool {
	if userID == uuid.Nil {
		return false
	}
	return m.resolve(ctx, userID, alertID, resolvedBy)
}

func (m *alertLifecycleManager) resolve(ctx context.Context, ownerID, alertID uuid.UUID, resolvedBy string) bool {
	log := m.log.With("alert_id", alertID)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		alert, err := m.alerts.GetByID(dbc, alertID)
		if err != nil {
			return err
		}
		if ownerID != uuid.Nil && alert.UserID != ownerID {
			return fmt.Errorf("alert %s: %w", alertID, perrors.ErrNotFound)
		}
		return m.alerts.UpdateFields(dbc, alertID, map[string]interface{}{
			"is_resolved": true,
			"resolved_at": m.now().UTC(),
			"resolved_by": resolvedBy,
		})
	})
	if err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			log.Info("Alert to resolve not found")
		} else {
			log.Error("Resolving alert failed", "error", err)
		}
		return false
	}

	confirmed, err := m.alerts.GetByID(dbctx.Context{Ctx: ctx}, alertID)
	if err != nil || !confirmed.IsResolved {
		log.Error("Alert resolution not confirmed", "error", err)
		return false
	}
	m.metrics.AlertResolved()
	log.Info("Alert resolved", "resolved_by", resolvedBy)
	return true
}

func (m *alertLifecycleManager) NotifyGuest(ctx context.Context, conversationID uuid.UUID, hostResponse string) (bool, error) {
	log := m.log.With("conversation_id", conversationID)
	dbc := dbctx.Context{Ctx: ctx}

	conv, err := m.conversations.GetByID(dbc, conversationID)
	if err != nil {
		return false, err
	}
	if conv.GuestID == nil {
		log.Info("Conversation has no guest, skipping guest notification")
		return false, nil
	}
	guest, err := m.guests.GetByID(dbc, *conv.GuestID)
	if err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			log.Warn("Conversation guest not found, skipping guest notification", "guest_id", conv.GuestID.String())
			return false, nil
		}
		return false, err
	}
	if strings.TrimSpace(guest.Email) == "" {
		log.Info("Guest has no email, skipping guest notification", "guest_id", guest.ID.String())
		return false, nil
	}

	chatbot, err := m.chatbots.GetByID(dbc, conv.ChatbotID)
	if err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			return false, fmt.Errorf("conversation %s references missing chatbot %s: %w", conv.ID, conv.ChatbotID, perrors.ErrIntegrity)
		}
		return false, err
	}

	history, err := m.messages.ListByConversation(dbc, conv.ID)
	if err != nil {
		return false, fmt.Errorf("load transcript: %w", err)
	}

	lang := guest.Language
	if strings.TrimSpace(lang) == "" {
		lang = types.DefaultLanguage
	}
	strs := m.catalog.lookup(lang)
	html, err := render(guestEmailTmpl, guestEmailData{
		S:       strs.Guest,
		Intro:   fill(strs.Guest.Intro, map[string]string{"name": displayName(guest.Name, guest.Email)}),
		Lines:   Transcript(history, hostResponse),
		ChatURL: ChatDeepLink(m.cfg.AppBaseURL, chatbot.ID, conv.ThreadID),
	})
	if err != nil {
		return false, fmt.Errorf("render guest email: %w", err)
	}

	if m.email == nil {
		log.Warn("No email sender configured, guest notification skipped")
		return false, nil
	}
	if err := m.email.SendEmail(ctx, guest.Email, strs.Guest.Subject, html); err != nil {
		log.Error("Sending guest notification failed", "error", err, "guest_email", guest.Email)
		m.metrics.NotificationSent(ChannelEmail, false)
		return false, nil
	}
	m.metrics.NotificationSent(ChannelEmail, true)
	log.Info("Guest notified", "guest_id", guest.ID.String())
	return true, nil
}

// Transcript renders the chronological history followed by the host reply.
func Transcript(history []*types.Message, hostResponse string) []string {
	lines := make([]string, 0, len(history)+1)
	for _, msg := range history {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case types.RoleUser:
			lines = append(lines, "Ospite: "+msg.Content)
		case types.RoleAssistant:
			lines = append(lines, "Assistente: "+msg.Content)
		}
	}
	return append(lines, "Host: "+hostResponse)
}

func ChatDeepLink(base string, chatbotID uuid.UUID, threadID string) string {
	return fmt.Sprintf("%s/chat/%s?thread_id=%s", strings.TrimRight(base, "/"), chatbotID, url.QueryEscape(threadID))
}
