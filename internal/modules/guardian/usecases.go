package guardian

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Backend ClassifierBackend
	Email   EmailSender
	SMS     SMSSender

	Users         repos.UserRepo
	Chatbots      repos.ChatbotRepo
	Guests        repos.GuestRepo
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Analyses      repos.GuardianAnalysisRepo
	Alerts        repos.GuardianAlertRepo

	// Optional: defaults to an in-process keyed mutex.
	Locker Locker
	// Optional: nil disables the subscription gate.
	Subscriptions SubscriptionChecker
	Metrics       Metrics
	Config        Config
}

// Usecases wires the Guardian services over one set of collaborators.
type Usecases struct {
	deps       UsecasesDeps
	classifier *RiskClassifier
	analyzer   ConversationAnalyzer
	factory    AlertFactory
	dispatcher NotificationDispatcher
	lifecycle  AlertLifecycleManager
	stats      StatisticsAggregator
	pipeline   Pipeline
}

func New(deps UsecasesDeps) (*Usecases, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("guardian: nil db: %w", perrors.ErrInvalidArgument)
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	cfg := deps.Config.withDefaults()
	deps.Config = cfg

	u := &Usecases{deps: deps}
	u.classifier = NewRiskClassifier(deps.Backend, deps.Log, cfg, deps.Metrics)
	u.analyzer = NewConversationAnalyzer(deps.DB, deps.Log, u.classifier, deps.Conversations, deps.Messages, deps.Analyses, cfg, deps.Metrics)
	u.factory = NewAlertFactory(deps.DB, deps.Log, deps.Chatbots, deps.Messages, deps.Alerts, cfg, deps.Metrics)

	var err error
	u.dispatcher, err = NewNotificationDispatcher(deps.Log, deps.Users, deps.Alerts, deps.Email, deps.SMS, cfg, deps.Metrics)
	if err != nil {
		return nil, fmt.Errorf("notification dispatcher: %w", err)
	}
	u.lifecycle, err = NewAlertLifecycleManager(deps.DB, deps.Log, deps.Alerts, deps.Conversations, deps.Chatbots, deps.Guests, deps.Messages, deps.Email, cfg, deps.Metrics)
	if err != nil {
		return nil, fmt.Errorf("alert lifecycle: %w", err)
	}
	u.stats = NewStatisticsAggregator(deps.Log, deps.Chatbots, deps.Conversations, deps.Alerts)
	u.pipeline = NewPipeline(PipelineDeps{
		DB:            deps.DB,
		Log:           deps.Log,
		Conversations: deps.Conversations,
		Chatbots:      deps.Chatbots,
		Messages:      deps.Messages,
		Alerts:        deps.Alerts,
		Analyzer:      u.analyzer,
		Factory:       u.factory,
		Dispatcher:    u.dispatcher,
		Locker:        deps.Locker,
		Subscriptions: deps.Subscriptions,
		Config:        cfg,
	})
	return u, nil
}

func (u *Usecases) Classifier() *RiskClassifier                { return u.classifier }
func (u *Usecases) Analyzer() ConversationAnalyzer             { return u.analyzer }
func (u *Usecases) Alerts() AlertFactory                       { return u.factory }
func (u *Usecases) Notifications() NotificationDispatcher      { return u.dispatcher }
func (u *Usecases) Lifecycle() AlertLifecycleManager           { return u.lifecycle }
func (u *Usecases) StatisticsAggregator() StatisticsAggregator { return u.stats }
func (u *Usecases) Pipeline() Pipeline                         { return u.pipeline }

// AuthorizeConversation returns the conversation when its chatbot belongs to
// userID. Foreign conversations are reported as not found.
func (u *Usecases) AuthorizeConversation(ctx context.Context, userID, conversationID uuid.UUID) (*types.Conversation, error) {
	dbc := dbctx.Context{Ctx: ctx}
	conv, err := u.deps.Conversations.GetByID(dbc, conversationID)
	if err != nil {
		return nil, err
	}
	chatbot, err := u.deps.Chatbots.GetByID(dbc, conv.ChatbotID)
	if err != nil {
		return nil, err
	}
	if chatbot.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, perrors.ErrNotFound)
	}
	return conv, nil
}

func (u *Usecases) ListAlerts(ctx context.Context, userID uuid.UUID, f repos.AlertListFilter) ([]*types.GuardianAlert, error) {
	return u.deps.Alerts.ListByUser(dbctx.Context{Ctx: ctx}, userID, f)
}

func (u *Usecases) ListAnalyses(ctx context.Context, userID, conversationID uuid.UUID, limit int) ([]*types.GuardianAnalysis, error) {
	if _, err := u.AuthorizeConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return u.deps.Analyses.ListByConversation(dbctx.Context{Ctx: ctx}, conversationID, limit)
}

func (u *Usecases) Statistics(ctx context.Context, userID uuid.UUID) Stats {
	return u.stats.Statistics(ctx, userID)
}

func (u *Usecases) User(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return u.deps.Users.GetByID(dbctx.Context{Ctx: ctx}, userID)
}
