package guardian

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type AlertFactory interface {
	// MaybeCreateAlert persists an alert when the verdict is flagged and
	// returns nil, nil otherwise. It does not deduplicate.
	MaybeCreateAlert(ctx context.Context, conversation *types.Conversation, analysis *types.GuardianAnalysis, verdict Verdict) (*types.GuardianAlert, error)
}

type alertFactory struct {
	db       *gorm.DB
	log      *logger.Logger
	chatbots repos.ChatbotRepo
	messages repos.MessageRepo
	alerts   repos.GuardianAlertRepo
	loc      *time.Location
	metrics  Metrics
}

func NewAlertFactory(
	db *gorm.DB,
	log *logger.Logger,
	chatbots repos.ChatbotRepo,
	messages repos.MessageRepo,
	alerts repos.GuardianAlertRepo,
	cfg Config,
	metrics Metrics,
) AlertFactory {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &alertFactory{
		db:       db,
		log:      log.With("service", "AlertFactory"),
		chatbots: chatbots,
		messages: messages,
		alerts:   alerts,
		loc:      cfg.Location,
		metrics:  metrics,
	}
}

func (f *alertFactory) MaybeCreateAlert(ctx context.Context, conversation *types.Conversation, analysis *types.GuardianAnalysis, verdict Verdict) (*types.GuardianAlert, error) {
	if conversation == nil {
		return nil, fmt.Errorf("nil conversation: %w", perrors.ErrInvalidArgument)
	}
	if !verdict.Flagged() {
		return nil, nil
	}

	var alert *types.GuardianAlert
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		chatbot, err := f.chatbots.GetByID(dbc, conversation.ChatbotID)
		if err != nil {
			if errors.Is(err, perrors.ErrNotFound) {
				return fmt.Errorf("conversation %s references missing chatbot %s: %w", conversation.ID, conversation.ChatbotID, perrors.ErrIntegrity)
			}
			return err
		}

		ex, err := loadExchange(dbc, f.messages, conversation.ID)
		if err != nil {
			return err
		}

		alert = &types.GuardianAlert{
			UserID:              chatbot.UserID,
			ConversationID:      conversation.ID,
			AlertType:           AlertTypeFor(verdict),
			Severity:            SeverityFor(verdict.RiskScore),
			RiskScore:           verdict.RiskScore,
			Message:             AlertMessage(conversation.ID.String(), verdict),
			SuggestedAction:     SuggestedAction(verdict),
			ConversationSummary: ex.Summary(f.loc),
		}
		return f.alerts.Create(dbc, alert)
	})
	if err != nil {
		f.log.Error("Alert creation failed", "conversation_id", conversation.ID, "error", err)
		return nil, err
	}

	f.metrics.AlertCreated(alert.AlertType, alert.Severity)
	logArgs := []interface{}{
		"alert_id", alert.ID,
		"conversation_id", conversation.ID,
		"severity", alert.Severity,
		"alert_type", alert.AlertType,
	}
	if analysis != nil {
		logArgs = append(logArgs, "analysis_id", analysis.ID)
	}
	f.log.Info("Guardian alert created", logArgs...)
	return alert, nil
}
