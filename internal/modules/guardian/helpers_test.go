package guardian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	"github.com/hostguard/guardian-backend/internal/data/repos/testutil"
	types "github.com/hostguard/guardian-backend/internal/domain"
)

type stubBackend struct {
	mu       sync.Mutex
	out      string
	err      error
	calls    int
	lastUser string
}

func (s *stubBackend) Complete(ctx context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastUser = user
	return s.out, s.err
}

func (s *stubBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type sentEmail struct {
	To      string
	Subject string
	HTML    string
}

type stubEmail struct {
	mu   sync.Mutex
	err  error
	sent []sentEmail
}

func (s *stubEmail) SendEmail(ctx context.Context, to, subject, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject, HTML: html})
	return nil
}

func (s *stubEmail) Sent() []sentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentEmail(nil), s.sent...)
}

type sentSMS struct {
	To   string
	Body string
}

type stubSMS struct {
	mu   sync.Mutex
	err  error
	sent []sentSMS
}

func (s *stubSMS) SendSMS(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentSMS{To: to, Body: body})
	return nil
}

func (s *stubSMS) Sent() []sentSMS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentSMS(nil), s.sent...)
}

var errStub = errors.New("stub failure")

type fixture struct {
	ctx     context.Context
	db      *gorm.DB
	repos   fixtureRepos
	backend *stubBackend
	email   *stubEmail
	sms     *stubSMS
	uc      *Usecases

	user    *types.User
	chatbot *types.Chatbot
	conv    *types.Conversation
}

type fixtureRepos struct {
	users         repos.UserRepo
	chatbots      repos.ChatbotRepo
	guests        repos.GuestRepo
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	analyses      repos.GuardianAnalysisRepo
	alerts        repos.GuardianAlertRepo
}

type fixtureOption func(*UsecasesDeps)

func withDedup(p DedupPolicy) fixtureOption {
	return func(d *UsecasesDeps) { d.Config.Dedup = p }
}

func withSubscriptionGate() fixtureOption {
	return func(d *UsecasesDeps) { d.Subscriptions = NewUserSubscriptionChecker(d.Users) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	f := &fixture{
		ctx:     ctx,
		db:      db,
		backend: &stubBackend{},
		email:   &stubEmail{},
		sms:     &stubSMS{},
		repos: fixtureRepos{
			users:         repos.NewUserRepo(db, log),
			chatbots:      repos.NewChatbotRepo(db, log),
			guests:        repos.NewGuestRepo(db, log),
			conversations: repos.NewConversationRepo(db, log),
			messages:      repos.NewMessageRepo(db, log),
			analyses:      repos.NewGuardianAnalysisRepo(db, log),
			alerts:        repos.NewGuardianAlertRepo(db, log),
		},
	}
	f.user = testutil.SeedUser(t, ctx, db, "host@example.com")
	f.chatbot = testutil.SeedChatbot(t, ctx, db, f.user.ID)
	f.conv = testutil.SeedConversation(t, ctx, db, f.chatbot.ID, nil)

	deps := UsecasesDeps{
		DB:            db,
		Log:           log,
		Backend:       f.backend,
		Email:         f.email,
		SMS:           f.sms,
		Users:         f.repos.users,
		Chatbots:      f.repos.chatbots,
		Guests:        f.repos.guests,
		Conversations: f.repos.conversations,
		Messages:      f.repos.messages,
		Analyses:      f.repos.analyses,
		Alerts:        f.repos.alerts,
		Config: Config{
			Location:   time.UTC,
			AppBaseURL: "https://app.example.com/",
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	uc, err := New(deps)
	require.NoError(t, err)
	f.uc = uc
	return f
}

func (f *fixture) exchange(t *testing.T, user, assistant string, at time.Time) {
	t.Helper()
	testutil.SeedMessage(t, f.ctx, f.db, f.conv.ID, types.RoleUser, user, at)
	if assistant != "" {
		testutil.SeedMessage(t, f.ctx, f.db, f.conv.ID, types.RoleAssistant, assistant, at.Add(time.Minute))
	}
}

func (f *fixture) reloadConversation(t *testing.T) *types.Conversation {
	t.Helper()
	var c types.Conversation
	require.NoError(t, f.db.Where("id = ?", f.conv.ID).First(&c).Error)
	return &c
}

func (f *fixture) alertsForConversation(t *testing.T) []*types.GuardianAlert {
	t.Helper()
	var rows []*types.GuardianAlert
	require.NoError(t, f.db.Where("conversation_id = ?", f.conv.ID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

const wifiVerdictJSON = `{
  "risk_score": 0.96,
  "sentiment_score": -0.8,
  "confidence_score": 0.9,
  "insufficient_info": false,
  "analysis_details": {
    "reasoning": "Guest is angry about connectivity",
    "key_issues": ["WiFi non funziona"],
    "sentiment_factors": ["frustration"]
  }
}`
