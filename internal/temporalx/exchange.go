package temporalx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/hostguard/guardian-backend/internal/modules/guardian"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

const ExchangeWorkflowName = "GuardianExchangeWorkflow"

type ExchangeInput struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type ExchangeResult struct {
	Skipped    bool      `json:"skipped"`
	SkipReason string    `json:"skip_reason,omitempty"`
	AnalysisID uuid.UUID `json:"analysis_id"`
	AlertID    uuid.UUID `json:"alert_id"`
	EmailSent  bool      `json:"email_sent"`
}

// GuardianExchangeWorkflow runs analyze, alert and notify as separate
// activities. Analysis is retried; alert creation and notification run once.
func GuardianExchangeWorkflow(ctx workflow.Context, in ExchangeInput) (ExchangeResult, error) {
	var a *Activities
	var out ExchangeResult

	analyzeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})
	var res guardian.AnalyzeResult
	if err := workflow.ExecuteActivity(analyzeCtx, a.Analyze, in.ConversationID).Get(ctx, &res); err != nil {
		return out, err
	}
	out.Skipped = res.Skipped
	out.SkipReason = res.SkipReason
	out.AnalysisID = res.AnalysisID
	if res.Skipped || !res.Verdict.Flagged() {
		return out, nil
	}

	onceCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(onceCtx, a.CreateAlert, AlertInput{
		ConversationID: in.ConversationID,
		AnalysisID:     res.AnalysisID,
		Verdict:        res.Verdict,
	}).Get(ctx, &out.AlertID); err != nil {
		return out, err
	}
	if out.AlertID == uuid.Nil {
		return out, nil
	}

	if err := workflow.ExecuteActivity(onceCtx, a.Notify, out.AlertID).Get(ctx, &out.EmailSent); err != nil {
		workflow.GetLogger(ctx).Warn("Notification activity failed", "alert_id", out.AlertID.String(), "error", err)
		out.EmailSent = false
	}
	return out, nil
}

type AlertInput struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	AnalysisID     uuid.UUID        `json:"analysis_id"`
	Verdict        guardian.Verdict `json:"verdict"`
}

// Activities adapts the guardian pipeline steps to Temporal activities.
type Activities struct {
	Pipeline guardian.Pipeline
}

func (a *Activities) Analyze(ctx context.Context, conversationID uuid.UUID) (guardian.AnalyzeResult, error) {
	activity.GetLogger(ctx).Info("Analyzing exchange", "conversation_id", conversationID.String())
	return a.Pipeline.AnalyzeStep(ctx, conversationID)
}

func (a *Activities) CreateAlert(ctx context.Context, in AlertInput) (uuid.UUID, error) {
	alert, err := a.Pipeline.AlertStep(ctx, in.ConversationID, in.AnalysisID, in.Verdict)
	if err != nil {
		return uuid.Nil, err
	}
	if alert == nil {
		return uuid.Nil, nil
	}
	return alert.ID, nil
}

func (a *Activities) Notify(ctx context.Context, alertID uuid.UUID) (bool, error) {
	return a.Pipeline.NotifyStep(ctx, alertID)
}

// NewWorker registers the exchange workflow and its activities on the task
// queue. The caller starts and stops it.
func NewWorker(c temporalsdkclient.Client, cfg Config, pipeline guardian.Pipeline) worker.Worker {
	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(GuardianExchangeWorkflow, workflow.RegisterOptions{Name: ExchangeWorkflowName})
	w.RegisterActivity(&Activities{Pipeline: pipeline})
	return w
}

// StartObserver counts workflow submissions.
type StartObserver interface {
	IncWorkflowStarted(ok bool)
}

// ExchangeStarter hands exchanges to Temporal instead of running the pipeline
// inline.
type ExchangeStarter struct {
	client    temporalsdkclient.Client
	taskQueue string
	log       *logger.Logger
	observer  StartObserver
}

// NewExchangeStarter accepts a nil observer.
func NewExchangeStarter(c temporalsdkclient.Client, cfg Config, log *logger.Logger, observer StartObserver) *ExchangeStarter {
	return &ExchangeStarter{
		client:    c,
		taskQueue: cfg.TaskQueue,
		log:       log.With("service", "ExchangeStarter"),
		observer:  observer,
	}
}

// Start enqueues one workflow per exchange and returns its workflow id.
func (s *ExchangeStarter) Start(ctx context.Context, conversationID uuid.UUID) (string, error) {
	id := fmt.Sprintf("guardian-exchange-%s-%s", conversationID, uuid.NewString()[:8])
	run, err := s.client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        id,
		TaskQueue: s.taskQueue,
	}, ExchangeWorkflowName, ExchangeInput{ConversationID: conversationID})
	if s.observer != nil {
		s.observer.IncWorkflowStarted(err == nil)
	}
	if err != nil {
		s.log.Error("Starting exchange workflow failed", "conversation_id", conversationID, "error", err)
		return "", fmt.Errorf("start exchange workflow: %w", err)
	}
	s.log.Info("Exchange workflow started", "conversation_id", conversationID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return run.GetID(), nil
}
