package guardian

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostguard/guardian-backend/internal/data/repos/testutil"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
)

func TestResolve(t *testing.T) {
	f := newFixture(t)
	alert := testutil.SeedAlert(t, f.ctx, f.db, f.user.ID, f.conv.ID, 0.92, false)
	lc := f.uc.Lifecycle()

	require.True(t, lc.Resolve(f.ctx, alert.ID, "host@example.com"))
	first, err := f.repos.alerts.GetByID(dbctx.Context{Ctx: f.ctx}, alert.ID)
	require.NoError(t, err)
	assert.True(t, first.IsResolved)
	assert.Equal(t, "host@example.com", first.ResolvedBy)
	require.NotNil(t, first.ResolvedAt)

	// Resolving again re-stamps.
	require.True(t, lc.Resolve(f.ctx, alert.ID, " staff "))
	second, err := f.repos.alerts.GetByID(dbctx.Context{Ctx: f.ctx}, alert.ID)
	require.NoError(t, err)
	assert.True(t, second.IsResolved)
	assert.Equal(t, " staff ", second.ResolvedBy)

	assert.False(t, lc.Resolve(f.ctx, uuid.New(), "host"))
}

func TestResolveForUser(t *testing.T) {
	f := newFixture(t)
	alert := testutil.SeedAlert(t, f.ctx, f.db, f.user.ID, f.conv.ID, 0.92, false)
	other := testutil.SeedUser(t, f.ctx, f.db, "other@example.com")
	lc := f.uc.Lifecycle()

	assert.False(t, lc.ResolveForUser(f.ctx, other.ID, alert.ID, "other"))
	stored, err := f.repos.alerts.GetByID(dbctx.Context{Ctx: f.ctx}, alert.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsResolved)

	assert.False(t, lc.ResolveForUser(f.ctx, uuid.Nil, alert.ID, "nobody"))
	assert.True(t, lc.ResolveForUser(f.ctx, f.user.ID, alert.ID, "host"))
}

func TestNotifyGuest(t *testing.T) {
	t.Run("conversation without guest", func(t *testing.T) {
		f := newFixture(t)
		ok, err := f.uc.Lifecycle().NotifyGuest(f.ctx, f.conv.ID, "Ci scusiamo")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, f.email.Sent())
	})

	t.Run("guest without email", func(t *testing.T) {
		f := newFixture(t)
		guest := testutil.SeedGuest(t, f.ctx, f.db, "", "it")
		conv := testutil.SeedConversation(t, f.ctx, f.db, f.chatbot.ID, &guest.ID)
		ok, err := f.uc.Lifecycle().NotifyGuest(f.ctx, conv.ID, "Ci scusiamo")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, f.email.Sent())
	})

	t.Run("sends transcript and deep link", func(t *testing.T) {
		f := newFixture(t)
		guest := testutil.SeedGuest(t, f.ctx, f.db, "guest@example.com", "en-US")
		conv := testutil.SeedConversation(t, f.ctx, f.db, f.chatbot.ID, &guest.ID)
		at := time.Now().UTC().Add(-time.Hour)
		testutil.SeedMessage(t, f.ctx, f.db, conv.ID, types.RoleUser, "The WiFi is down", at)
		testutil.SeedMessage(t, f.ctx, f.db, conv.ID, types.RoleAssistant, "Please restart the router", at.Add(time.Minute))

		ok, err := f.uc.Lifecycle().NotifyGuest(f.ctx, conv.ID, "A technician is on the way")
		require.NoError(t, err)
		require.True(t, ok)

		sent := f.email.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "guest@example.com", sent[0].To)
		cat, err := loadCatalog(localesYAML)
		require.NoError(t, err)
		assert.Equal(t, cat["en"].Guest.Subject, sent[0].Subject)
		assert.Contains(t, sent[0].HTML, "Ospite: The WiFi is down")
		assert.Contains(t, sent[0].HTML, "Assistente: Please restart the router")
		assert.Contains(t, sent[0].HTML, "Host: A technician is on the way")
		assert.Contains(t, sent[0].HTML, "https://app.example.com/chat/"+f.chatbot.ID.String()+"?thread_id="+conv.ThreadID)
	})

	t.Run("missing chatbot", func(t *testing.T) {
		f := newFixture(t)
		guest := testutil.SeedGuest(t, f.ctx, f.db, "guest@example.com", "it")
		conv := testutil.SeedConversation(t, f.ctx, f.db, uuid.New(), &guest.ID)
		ok, err := f.uc.Lifecycle().NotifyGuest(f.ctx, conv.ID, "Ci scusiamo")
		require.Error(t, err)
		assert.True(t, errors.Is(err, perrors.ErrIntegrity))
		assert.False(t, ok)
	})

	t.Run("email failure", func(t *testing.T) {
		f := newFixture(t)
		f.email.err = errStub
		guest := testutil.SeedGuest(t, f.ctx, f.db, "guest@example.com", "it")
		conv := testutil.SeedConversation(t, f.ctx, f.db, f.chatbot.ID, &guest.ID)
		ok, err := f.uc.Lifecycle().NotifyGuest(f.ctx, conv.ID, "Ci scusiamo")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTranscript(t *testing.T) {
	history := []*types.Message{
		{Role: types.RoleUser, Content: "ciao"},
		{Role: types.RoleAssistant, Content: "salve"},
		nil,
	}
	assert.Equal(t, []string{"Ospite: ciao", "Assistente: salve", "Host: arrivo"}, Transcript(history, "arrivo"))
	assert.Equal(t, []string{"Host: ok"}, Transcript(nil, "ok"))
}

func TestChatDeepLink(t *testing.T) {
	id := uuid.MustParse("6f1c2d7e-0000-4000-8000-000000000001")
	assert.Equal(t,
		"https://app.example.com/chat/6f1c2d7e-0000-4000-8000-000000000001?thread_id=thread_1",
		ChatDeepLink("https://app.example.com/", id, "thread_1"))
}
