package guardian

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

const (
	SkipSubscriptionInactive = "subscription_inactive"
)

// Outcome is the result of processing one exchange.
type Outcome struct {
	Skipped         bool                    `json:"skipped"`
	SkipReason      string                  `json:"skip_reason,omitempty"`
	Analysis        *types.GuardianAnalysis `json:"analysis,omitempty"`
	Alert           *types.GuardianAlert    `json:"alert,omitempty"`
	AlertSuppressed bool                    `json:"alert_suppressed,omitempty"`
	EmailSent       bool                    `json:"email_sent"`
}

// AnalyzeResult is the serialisable output of the analysis step.
type AnalyzeResult struct {
	Skipped    bool                    `json:"skipped"`
	SkipReason string                  `json:"skip_reason,omitempty"`
	AnalysisID uuid.UUID               `json:"analysis_id"`
	Verdict    Verdict                 `json:"verdict"`
	Analysis   *types.GuardianAnalysis `json:"-"`
}

type Pipeline interface {
	// RecordExchange stores the guest message and the optional chatbot reply
	// and bumps the conversation's message count.
	RecordExchange(ctx context.Context, conversationID uuid.UUID, userMessage, assistantMessage string) error
	// ProcessExchange runs analysis, alert creation and notification for the
	// latest exchange of a conversation.
	ProcessExchange(ctx context.Context, conversationID uuid.UUID) (Outcome, error)

	AnalyzeStep(ctx context.Context, conversationID uuid.UUID) (AnalyzeResult, error)
	// AlertStep returns nil when the verdict is not flagged or an unresolved
	// alert already exists under the dedup policy.
	AlertStep(ctx context.Context, conversationID uuid.UUID, analysisID uuid.UUID, verdict Verdict) (*types.GuardianAlert, error)
	// NotifyStep is a no-op returning true for alerts already emailed.
	NotifyStep(ctx context.Context, alertID uuid.UUID) (bool, error)
}

type PipelineDeps struct {
	DB            *gorm.DB
	Log           *logger.Logger
	Conversations repos.ConversationRepo
	Chatbots      repos.ChatbotRepo
	Messages      repos.MessageRepo
	Alerts        repos.GuardianAlertRepo
	Analyzer      ConversationAnalyzer
	Factory       AlertFactory
	Dispatcher    NotificationDispatcher
	Locker        Locker
	Subscriptions SubscriptionChecker
	Config        Config
}

type pipeline struct {
	db            *gorm.DB
	log           *logger.Logger
	conversations repos.ConversationRepo
	chatbots      repos.ChatbotRepo
	messages      repos.MessageRepo
	alerts        repos.GuardianAlertRepo
	analyzer      ConversationAnalyzer
	factory       AlertFactory
	dispatcher    NotificationDispatcher
	locker        Locker
	subscriptions SubscriptionChecker
	dedup         DedupPolicy
	now           func() time.Time
}

func NewPipeline(deps PipelineDeps) Pipeline {
	cfg := deps.Config.withDefaults()
	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &pipeline{
		db:            deps.DB,
		log:           deps.Log.With("service", "GuardianPipeline"),
		conversations: deps.Conversations,
		chatbots:      deps.Chatbots,
		messages:      deps.Messages,
		alerts:        deps.Alerts,
		analyzer:      deps.Analyzer,
		factory:       deps.Factory,
		dispatcher:    deps.Dispatcher,
		locker:        locker,
		subscriptions: deps.Subscriptions,
		dedup:         cfg.Dedup,
		now:           time.Now,
	}
}

func lockKey(conversationID uuid.UUID) string {
	return "conversation:" + conversationID.String()
}

func (p *pipeline) RecordExchange(ctx context.Context, conversationID uuid.UUID, userMessage, assistantMessage string) error {
	if strings.TrimSpace(userMessage) == "" {
		return fmt.Errorf("empty user message: %w", perrors.ErrInvalidArgument)
	}
	at := p.now().UTC()
	rows := []*types.Message{{
		ConversationID: conversationID,
		Role:           types.RoleUser,
		Content:        userMessage,
		CreatedAt:      at,
	}}
	if strings.TrimSpace(assistantMessage) != "" {
		rows = append(rows, &types.Message{
			ConversationID: conversationID,
			Role:           types.RoleAssistant,
			Content:        assistantMessage,
			CreatedAt:      at.Add(time.Millisecond),
		})
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := p.conversations.GetByIDForUpdate(dbc, conversationID); err != nil {
			return err
		}
		if _, err := p.messages.Create(dbc, rows); err != nil {
			return fmt.Errorf("store exchange: %w", err)
		}
		return p.conversations.IncrementMessageCount(dbc, conversationID, len(rows))
	})
}

func (p *pipeline) ProcessExchange(ctx context.Context, conversationID uuid.UUID) (Outcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "guardian.process_exchange")
	defer span.End()
	span.SetAttributes(attribute.String("guardian.conversation_id", conversationID.String()))

	unlock, err := p.locker.Lock(ctx, lockKey(conversationID))
	if err != nil {
		span.RecordError(err)
		return Outcome{}, fmt.Errorf("lock conversation: %w", err)
	}
	res, alert, err := func() (AnalyzeResult, *types.GuardianAlert, error) {
		defer unlock()
		res, err := p.analyze(ctx, conversationID)
		if err != nil || res.Skipped {
			return res, nil, err
		}
		alert, err := p.createAlert(ctx, conversationID, res.Analysis, res.Verdict)
		return res, alert, err
	}()
	if err != nil {
		span.RecordError(err)
		return Outcome{}, err
	}

	out := Outcome{
		Skipped:    res.Skipped,
		SkipReason: res.SkipReason,
		Analysis:   res.Analysis,
		Alert:      alert,
	}
	if res.Skipped {
		return out, nil
	}
	out.AlertSuppressed = alert == nil && res.Verdict.Flagged()
	if alert != nil && p.dispatcher != nil {
		out.EmailSent = p.dispatcher.Send(ctx, alert)
	}
	span.SetAttributes(
		attribute.Bool("guardian.alert_created", alert != nil),
		attribute.Bool("guardian.email_sent", out.EmailSent),
	)
	return out, nil
}

func (p *pipeline) AnalyzeStep(ctx context.Context, conversationID uuid.UUID) (AnalyzeResult, error) {
	unlock, err := p.locker.Lock(ctx, lockKey(conversationID))
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("lock conversation: %w", err)
	}
	defer unlock()
	return p.analyze(ctx, conversationID)
}

func (p *pipeline) AlertStep(ctx context.Context, conversationID uuid.UUID, analysisID uuid.UUID, verdict Verdict) (*types.GuardianAlert, error) {
	unlock, err := p.locker.Lock(ctx, lockKey(conversationID))
	if err != nil {
		return nil, fmt.Errorf("lock conversation: %w", err)
	}
	defer unlock()
	return p.createAlert(ctx, conversationID, &types.GuardianAnalysis{ID: analysisID, ConversationID: conversationID}, verdict)
}

func (p *pipeline) NotifyStep(ctx context.Context, alertID uuid.UUID) (bool, error) {
	alert, err := p.alerts.GetByID(dbctx.Context{Ctx: ctx}, alertID)
	if err != nil {
		return false, err
	}
	if alert.EmailSent {
		return true, nil
	}
	if p.dispatcher == nil {
		return false, nil
	}
	return p.dispatcher.Send(ctx, alert), nil
}

func (p *pipeline) analyze(ctx context.Context, conversationID uuid.UUID) (AnalyzeResult, error) {
	log := p.log.With("conversation_id", conversationID)

	active, err := p.subscriptionActive(ctx, conversationID)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if !active {
		log.Info("Owner subscription inactive, analysis skipped")
		return AnalyzeResult{Skipped: true, SkipReason: SkipSubscriptionInactive}, nil
	}

	analysis, verdict, err := p.analyzer.Analyze(ctx, conversationID)
	if err != nil {
		return AnalyzeResult{}, err
	}
	return AnalyzeResult{AnalysisID: analysis.ID, Verdict: verdict, Analysis: analysis}, nil
}

func (p *pipeline) subscriptionActive(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	if p.subscriptions == nil {
		return true, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	conv, err := p.conversations.GetByID(dbc, conversationID)
	if err != nil {
		return false, err
	}
	chatbot, err := p.chatbots.GetByID(dbc, conv.ChatbotID)
	if err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			return false, fmt.Errorf("conversation %s references missing chatbot %s: %w", conv.ID, conv.ChatbotID, perrors.ErrIntegrity)
		}
		return false, err
	}
	return p.subscriptions.IsActive(ctx, chatbot.UserID)
}

func (p *pipeline) createAlert(ctx context.Context, conversationID uuid.UUID, analysis *types.GuardianAnalysis, verdict Verdict) (*types.GuardianAlert, error) {
	if !verdict.Flagged() {
		return nil, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	if p.dedup == DedupUnresolved {
		pending, err := p.alerts.ExistsUnresolved(dbc, conversationID)
		if err != nil {
			return nil, fmt.Errorf("check pending alerts: %w", err)
		}
		if pending {
			p.log.Info("Unresolved alert already open, new alert suppressed", "conversation_id", conversationID)
			return nil, nil
		}
	}
	conv, err := p.conversations.GetByID(dbc, conversationID)
	if err != nil {
		return nil, err
	}
	return p.factory.MaybeCreateAlert(ctx, conv, analysis, verdict)
}
