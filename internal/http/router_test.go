package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	"github.com/hostguard/guardian-backend/internal/data/repos/testutil"
	types "github.com/hostguard/guardian-backend/internal/domain"
	httpH "github.com/hostguard/guardian-backend/internal/http/handlers"
	httpMW "github.com/hostguard/guardian-backend/internal/http/middleware"
	"github.com/hostguard/guardian-backend/internal/modules/guardian"
)

const (
	testSecret      = "router-test-secret"
	testInternalKey = "router-internal-key"
)

const angryVerdict = `{"risk_score": 0.97, "sentiment_score": -0.9, "confidence_score": 0.9,
"insufficient_info": false, "analysis_details": {"reasoning": "no hot water",
"key_issues": ["Acqua calda assente"], "sentiment_factors": ["anger"]}}`

type cannedBackend struct{ out string }

func (b cannedBackend) Complete(ctx context.Context, system, user string) (string, error) {
	return b.out, nil
}

type recordingEmail struct {
	mu sync.Mutex
	to []string
}

func (e *recordingEmail) SendEmail(ctx context.Context, to, subject, html string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.to = append(e.to, to)
	return nil
}

type routerEnv struct {
	engine *gin.Engine
	host   *types.User
	conv   *types.Conversation
	email  *recordingEmail
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	host := testutil.SeedUser(t, ctx, db, "host@example.com")
	chatbot := testutil.SeedChatbot(t, ctx, db, host.ID)
	conv := testutil.SeedConversation(t, ctx, db, chatbot.ID, nil)

	email := &recordingEmail{}
	uc, err := guardian.New(guardian.UsecasesDeps{
		DB:            db,
		Log:           log,
		Backend:       cannedBackend{out: angryVerdict},
		Email:         email,
		Users:         repos.NewUserRepo(db, log),
		Chatbots:      repos.NewChatbotRepo(db, log),
		Guests:        repos.NewGuestRepo(db, log),
		Conversations: repos.NewConversationRepo(db, log),
		Messages:      repos.NewMessageRepo(db, log),
		Analyses:      repos.NewGuardianAnalysisRepo(db, log),
		Alerts:        repos.NewGuardianAlertRepo(db, log),
		Config:        guardian.Config{Location: time.UTC, AppBaseURL: "https://app.example.com"},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	engine := NewRouter(RouterConfig{
		Log:             log,
		InternalKey:     testInternalKey,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, testSecret),
		HealthHandler:   httpH.NewHealthHandler(sqlDB),
		GuardianHandler: httpH.NewGuardianHandler(log, uc, uc.Lifecycle()),
		ExchangeHandler: httpH.NewExchangeHandler(log, uc.Pipeline(), nil),
	})
	return &routerEnv{engine: engine, host: host, conv: conv, email: email}
}

func bearer(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	claims := httpMW.HostClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func (e *routerEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeAlerts(t *testing.T, rec *httptest.ResponseRecorder) []types.GuardianAlert {
	t.Helper()
	var body struct {
		Alerts []types.GuardianAlert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Alerts
}

func TestRouter_Healthcheck(t *testing.T) {
	env := newRouterEnv(t)
	rec := env.do(http.MethodGet, "/healthcheck", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_ExchangeToResolvedAlert(t *testing.T) {
	env := newRouterEnv(t)
	exchangePath := "/api/internal/conversations/" + env.conv.ID.String() + "/exchanges"
	payload := map[string]string{
		"user_message":      "Non c'è acqua calda da ieri sera!",
		"assistant_message": "Mi dispiace, avviso subito l'host.",
	}

	rec := env.do(http.MethodPost, exchangePath, payload, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, exchangePath, payload, map[string]string{"X-Internal-Key": testInternalKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out guardian.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.Alert)
	assert.Equal(t, types.SeverityCritical, out.Alert.Severity)
	assert.True(t, out.EmailSent)
	assert.Equal(t, []string{"host@example.com"}, env.email.to)

	auth := map[string]string{"Authorization": bearer(t, env.host.ID, env.host.Email)}

	rec = env.do(http.MethodGet, "/api/guardian/alerts?resolved=false", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	alerts := decodeAlerts(t, rec)
	require.Len(t, alerts, 1)
	assert.Equal(t, out.Alert.ID, alerts[0].ID)

	stranger := map[string]string{"Authorization": bearer(t, uuid.New(), "other@example.com")}
	rec = env.do(http.MethodGet, "/api/guardian/alerts", nil, stranger)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeAlerts(t, rec))

	rec = env.do(http.MethodPost, "/api/guardian/alerts/"+out.Alert.ID.String()+"/resolve", nil, stranger)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/api/guardian/alerts/"+out.Alert.ID.String()+"/resolve", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/guardian/alerts?resolved=false", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeAlerts(t, rec))

	rec = env.do(http.MethodGet, "/api/guardian/statistics", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats guardian.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalGuests)
	assert.Equal(t, int64(1), stats.HighRiskGuests)
	assert.Equal(t, int64(1), stats.ResolvedIssues)

	rec = env.do(http.MethodGet, "/api/guardian/conversations/"+env.conv.ID.String()+"/analyses", nil, stranger)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HostRoutesRequireToken(t *testing.T) {
	env := newRouterEnv(t)
	rec := env.do(http.MethodGet, "/api/guardian/statistics", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
