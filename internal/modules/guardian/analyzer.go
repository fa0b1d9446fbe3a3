package guardian

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type ConversationAnalyzer interface {
	// Analyze classifies the latest exchange of a conversation, appends a
	// GuardianAnalysis and updates the conversation's guardian fields in one
	// transaction.
	Analyze(ctx context.Context, conversationID uuid.UUID) (*types.GuardianAnalysis, Verdict, error)
	// LatestExchange loads the latest guest message and the reply that followed it.
	LatestExchange(ctx context.Context, conversationID uuid.UUID) (Exchange, error)
}

type conversationAnalyzer struct {
	db            *gorm.DB
	log           *logger.Logger
	classifier    *RiskClassifier
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	analyses      repos.GuardianAnalysisRepo
	loc           *time.Location
	metrics       Metrics
}

func NewConversationAnalyzer(
	db *gorm.DB,
	log *logger.Logger,
	classifier *RiskClassifier,
	conversations repos.ConversationRepo,
	messages repos.MessageRepo,
	analyses repos.GuardianAnalysisRepo,
	cfg Config,
	metrics Metrics,
) ConversationAnalyzer {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &conversationAnalyzer{
		db:            db,
		log:           log.With("service", "ConversationAnalyzer"),
		classifier:    classifier,
		conversations: conversations,
		messages:      messages,
		analyses:      analyses,
		loc:           cfg.Location,
		metrics:       metrics,
	}
}

func (a *conversationAnalyzer) LatestExchange(ctx context.Context, conversationID uuid.UUID) (Exchange, error) {
	return loadExchange(dbctx.Context{Ctx: ctx}, a.messages, conversationID)
}

func (a *conversationAnalyzer) Analyze(ctx context.Context, conversationID uuid.UUID) (*types.GuardianAnalysis, Verdict, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "guardian.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("guardian.conversation_id", conversationID.String()))

	if _, err := a.conversations.GetByID(dbctx.Context{Ctx: ctx}, conversationID); err != nil {
		span.RecordError(err)
		return nil, Verdict{}, err
	}

	ex, err := a.LatestExchange(ctx, conversationID)
	if err != nil {
		span.RecordError(err)
		return nil, Verdict{}, err
	}

	verdict := a.classifier.Classify(ctx, ex)
	input := ex.ClassifierInput(a.loc)

	details, err := types.EncodeDetails(verdict.Details)
	if err != nil {
		return nil, Verdict{}, fmt.Errorf("encode analysis details: %w", err)
	}
	analysis := &types.GuardianAnalysis{
		ConversationID:       conversationID,
		RiskScore:            verdict.RiskScore,
		SentimentScore:       verdict.SentimentScore,
		ConfidenceScore:      verdict.ConfidenceScore,
		InsufficientInfo:     verdict.InsufficientInfo,
		AnalysisDetails:      details,
		UserMessagesAnalyzed: userMessagesAnalyzed(ex),
		ConversationLength:   len([]rune(input)),
		AnalyzedAt:           time.Now().UTC(),
	}

	flagged := verdict.Flagged()
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := a.conversations.GetByIDForUpdate(dbc, conversationID); err != nil {
			return err
		}
		if err := a.analyses.Create(dbc, analysis); err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}
		updates := map[string]interface{}{
			"guardian_analyzed":   true,
			"guardian_risk_score": verdict.RiskScore,
		}
		if flagged {
			updates["guardian_alert_triggered"] = true
		}
		if err := a.conversations.UpdateFields(dbc, conversationID, updates); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		a.log.Error("Analysis rolled back", "conversation_id", conversationID, "error", err)
		span.RecordError(err)
		return nil, Verdict{}, err
	}

	a.metrics.AnalysisRecorded(flagged)
	a.log.Info("Conversation analyzed",
		"conversation_id", conversationID,
		"analysis_id", analysis.ID,
		"risk_score", verdict.RiskScore,
		"insufficient_info", verdict.InsufficientInfo,
		"flagged", flagged,
	)
	span.SetAttributes(attribute.Bool("guardian.flagged", flagged))
	return analysis, verdict, nil
}

func userMessagesAnalyzed(ex Exchange) int {
	if ex.User == nil {
		return 0
	}
	return 1
}
