package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hostguard/guardian-backend/internal/http/response"
	"github.com/hostguard/guardian-backend/internal/modules/guardian"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

// ExchangePipeline stores and processes chat exchanges inline.
type ExchangePipeline interface {
	RecordExchange(ctx context.Context, conversationID uuid.UUID, userMessage, assistantMessage string) error
	ProcessExchange(ctx context.Context, conversationID uuid.UUID) (guardian.Outcome, error)
}

// WorkflowStarter hands an exchange to the async worker.
type WorkflowStarter interface {
	Start(ctx context.Context, conversationID uuid.UUID) (string, error)
}

type ExchangeHandler struct {
	log      *logger.Logger
	pipeline ExchangePipeline
	starter  WorkflowStarter
}

// NewExchangeHandler processes exchanges inline when starter is nil.
func NewExchangeHandler(log *logger.Logger, pipeline ExchangePipeline, starter WorkflowStarter) *ExchangeHandler {
	return &ExchangeHandler{
		log:      log.With("handler", "ExchangeHandler"),
		pipeline: pipeline,
		starter:  starter,
	}
}

type exchangeRequest struct {
	UserMessage      string `json:"user_message" binding:"required"`
	AssistantMessage string `json:"assistant_message"`
}

// POST /api/internal/conversations/:id/exchanges
func (h *ExchangeHandler) RecordExchange(c *gin.Context) {
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserMessage) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	if err := h.pipeline.RecordExchange(ctx, convID, req.UserMessage, req.AssistantMessage); err != nil {
		h.log.Error("Recording exchange failed", "conversation_id", convID, "error", err)
		response.RespondErrorFrom(c, err)
		return
	}

	if h.starter != nil {
		workflowID, err := h.starter.Start(ctx, convID)
		if err != nil {
			response.RespondErrorFrom(c, err)
			return
		}
		response.RespondAccepted(c, gin.H{"queued": true, "workflow_id": workflowID})
		return
	}

	out, err := h.pipeline.ProcessExchange(ctx, convID)
	if err != nil {
		h.log.Error("Processing exchange failed", "conversation_id", convID, "error", err)
		response.RespondErrorFrom(c, err)
		return
	}
	response.RespondOK(c, out)
}
