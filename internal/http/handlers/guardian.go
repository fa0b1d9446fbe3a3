package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/http/response"
	"github.com/hostguard/guardian-backend/internal/modules/guardian"
	"github.com/hostguard/guardian-backend/internal/pkg/ctxutil"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

// GuardianService is the host-facing read side of Guardian.
type GuardianService interface {
	AuthorizeConversation(ctx context.Context, userID, conversationID uuid.UUID) (*types.Conversation, error)
	ListAlerts(ctx context.Context, userID uuid.UUID, f repos.AlertListFilter) ([]*types.GuardianAlert, error)
	ListAnalyses(ctx context.Context, userID, conversationID uuid.UUID, limit int) ([]*types.GuardianAnalysis, error)
	Statistics(ctx context.Context, userID uuid.UUID) guardian.Stats
}

type GuardianHandler struct {
	log       *logger.Logger
	service   GuardianService
	lifecycle guardian.AlertLifecycleManager
}

func NewGuardianHandler(log *logger.Logger, service GuardianService, lifecycle guardian.AlertLifecycleManager) *GuardianHandler {
	return &GuardianHandler{
		log:       log.With("handler", "GuardianHandler"),
		service:   service,
		lifecycle: lifecycle,
	}
}

func requestUser(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}
	return rd, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit reads an optional non-negative ?limit=. Zero means the default.
func queryLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err == nil && n < 0 {
		err = fmt.Errorf("limit must not be negative")
	}
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
		return 0, false
	}
	return n, true
}

// GET /api/guardian/alerts?resolved=&limit=
func (h *GuardianHandler) ListAlerts(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	var f repos.AlertListFilter
	if raw := strings.TrimSpace(c.Query("resolved")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_resolved", err)
			return
		}
		f.Resolved = &v
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	f.Limit = limit
	alerts, err := h.service.ListAlerts(c.Request.Context(), rd.UserID, f)
	if err != nil {
		h.log.Error("Listing alerts failed", "user_id", rd.UserID, "error", err)
		response.RespondErrorFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"alerts": alerts})
}

type resolveAlertRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// POST /api/guardian/alerts/:id/resolve
func (h *GuardianHandler) ResolveAlert(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	alertID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req resolveAlertRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	resolvedBy := strings.TrimSpace(req.ResolvedBy)
	if resolvedBy == "" {
		resolvedBy = rd.Email
	}
	if resolvedBy == "" {
		resolvedBy = rd.UserID.String()
	}
	if !h.lifecycle.ResolveForUser(c.Request.Context(), rd.UserID, alertID, resolvedBy) {
		response.RespondError(c, http.StatusNotFound, "alert_not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"resolved": true})
}

type notifyGuestRequest struct {
	HostResponse string `json:"host_response" binding:"required"`
}

// POST /api/guardian/conversations/:id/notify-guest
func (h *GuardianHandler) NotifyGuest(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req notifyGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.HostResponse) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if _, err := h.service.AuthorizeConversation(c.Request.Context(), rd.UserID, convID); err != nil {
		response.RespondErrorFrom(c, err)
		return
	}
	sent, err := h.lifecycle.NotifyGuest(c.Request.Context(), convID, req.HostResponse)
	if err != nil {
		h.log.Error("Guest notification failed", "conversation_id", convID, "error", err)
		response.RespondErrorFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sent": sent})
}

// GET /api/guardian/conversations/:id/analyses?limit=
func (h *GuardianHandler) ListAnalyses(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	rows, err := h.service.ListAnalyses(c.Request.Context(), rd.UserID, convID, limit)
	if err != nil {
		response.RespondErrorFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"analyses": rows})
}

// GET /api/guardian/statistics
func (h *GuardianHandler) Statistics(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	response.RespondOK(c, h.service.Statistics(c.Request.Context(), rd.UserID))
}
