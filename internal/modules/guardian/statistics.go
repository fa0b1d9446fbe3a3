package guardian

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

const defaultSatisfaction = 5.0

type Stats struct {
	TotalGuests              int64   `json:"total_guests"`
	HighRiskGuests           int64   `json:"high_risk_guests"`
	ResolvedIssues           int64   `json:"resolved_issues"`
	AvgSatisfaction          float64 `json:"avg_satisfaction"`
	NegativeReviewsPrevented int64   `json:"negative_reviews_prevented"`
}

func DefaultStats() Stats {
	return Stats{AvgSatisfaction: defaultSatisfaction}
}

// satisfaction maps a mean risk in [0,1] onto a 1..5 score.
func satisfaction(meanRisk float64) float64 {
	return clamp(defaultSatisfaction-meanRisk*4.0, 1.0, 5.0)
}

type StatisticsAggregator interface {
	// Statistics never fails; query errors yield DefaultStats.
	Statistics(ctx context.Context, userID uuid.UUID) Stats
}

type statisticsAggregator struct {
	log           *logger.Logger
	chatbots      repos.ChatbotRepo
	conversations repos.ConversationRepo
	alerts        repos.GuardianAlertRepo
}

func NewStatisticsAggregator(
	log *logger.Logger,
	chatbots repos.ChatbotRepo,
	conversations repos.ConversationRepo,
	alerts repos.GuardianAlertRepo,
) StatisticsAggregator {
	return &statisticsAggregator{
		log:           log.With("service", "StatisticsAggregator"),
		chatbots:      chatbots,
		conversations: conversations,
		alerts:        alerts,
	}
}

func (s *statisticsAggregator) Statistics(ctx context.Context, userID uuid.UUID) Stats {
	log := s.log.With("user_id", userID)

	chatbotIDs, err := s.chatbots.ListIDsByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		log.Error("Loading chatbots for statistics failed", "error", err)
		return DefaultStats()
	}

	var (
		total, highRisk, resolved int64
		meanRisk                  float64
		analyzed                  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() error {
		var err error
		total, err = s.conversations.CountByChatbotIDs(dbc, chatbotIDs)
		return err
	})
	g.Go(func() error {
		var err error
		highRisk, err = s.conversations.CountHighRiskByChatbotIDs(dbc, chatbotIDs, RiskThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		meanRisk, analyzed, err = s.conversations.AvgRiskAnalyzedByChatbotIDs(dbc, chatbotIDs)
		return err
	})
	g.Go(func() error {
		var err error
		resolved, err = s.alerts.CountResolvedByUser(dbc, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("Computing statistics failed", "error", err)
		return DefaultStats()
	}

	stats := Stats{
		TotalGuests:              total,
		HighRiskGuests:           highRisk,
		ResolvedIssues:           resolved,
		AvgSatisfaction:          defaultSatisfaction,
		NegativeReviewsPrevented: resolved,
	}
	if analyzed > 0 {
		stats.AvgSatisfaction = satisfaction(meanRisk)
	}
	return stats
}
