package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hostguard/guardian-backend/internal/data/repos/testutil"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
)

func TestMessageRepoLatestByRole(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "msg@example.com")
	cb := testutil.SeedChatbot(t, ctx, tx, u.ID)
	conv := testutil.SeedConversation(t, ctx, tx, cb.ID, nil)

	repo := NewMessageRepo(db, testutil.Logger(t))

	got, err := repo.LatestByRole(dbc, conv.ID, types.RoleUser)
	if err != nil {
		t.Fatalf("LatestByRole(empty): %v", err)
	}
	if got != nil {
		t.Fatalf("LatestByRole(empty): expected nil, got %+v", got)
	}

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	testutil.SeedMessage(t, ctx, tx, conv.ID, types.RoleUser, "first", base)
	testutil.SeedMessage(t, ctx, tx, conv.ID, types.RoleAssistant, "reply one", base.Add(time.Minute))
	testutil.SeedMessage(t, ctx, tx, conv.ID, types.RoleUser, "second", base.Add(2*time.Minute))

	got, err = repo.LatestByRole(dbc, conv.ID, types.RoleUser)
	if err != nil || got == nil {
		t.Fatalf("LatestByRole(user): err=%v got=%v", err, got)
	}
	if got.Content != "second" {
		t.Fatalf("LatestByRole(user): expected second, got %q", got.Content)
	}

	got, err = repo.LatestByRole(dbc, conv.ID, types.RoleAssistant)
	if err != nil || got == nil {
		t.Fatalf("LatestByRole(assistant): err=%v got=%v", err, got)
	}
	if got.Content != "reply one" {
		t.Fatalf("LatestByRole(assistant): expected reply one, got %q", got.Content)
	}

	all, err := repo.ListByConversation(dbc, conv.ID)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(all) != 3 || all[0].Content != "first" || all[2].Content != "second" {
		t.Fatalf("ListByConversation: unexpected order: %+v", all)
	}
}

func TestMessageRepoRejectsUnknownRole(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMessageRepo(db, testutil.Logger(t))

	_, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*types.Message{
		{ConversationID: uuid.New(), Role: "system", Content: "x"},
	})
	if !errors.Is(err, perrors.ErrInvalidArgument) {
		t.Fatalf("Create: expected ErrInvalidArgument, got %v", err)
	}
}

func TestConversationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "conv@example.com")
	cb := testutil.SeedChatbot(t, ctx, tx, u.ID)
	c1 := testutil.SeedConversation(t, ctx, tx, cb.ID, nil)
	c2 := testutil.SeedConversation(t, ctx, tx, cb.ID, nil)
	_ = testutil.SeedConversation(t, ctx, tx, cb.ID, nil)

	repo := NewConversationRepo(db, testutil.Logger(t))

	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("GetByID(missing): expected ErrNotFound, got %v", err)
	}

	if err := repo.UpdateFields(dbc, c1.ID, map[string]interface{}{
		"guardian_analyzed":   true,
		"guardian_risk_score": 0.9,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := repo.UpdateFields(dbc, c2.ID, map[string]interface{}{
		"guardian_analyzed":   true,
		"guardian_risk_score": 0.3,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := repo.IncrementMessageCount(dbc, c1.ID, 2); err != nil {
		t.Fatalf("IncrementMessageCount: %v", err)
	}

	got, err := repo.GetByID(dbc, c1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.GuardianAnalyzed || got.GuardianRiskScore != 0.9 || got.MessageCount != 2 {
		t.Fatalf("GetByID: unexpected row: %+v", got)
	}

	ids := []uuid.UUID{cb.ID}
	total, err := repo.CountByChatbotIDs(dbc, ids)
	if err != nil || total != 3 {
		t.Fatalf("CountByChatbotIDs: err=%v total=%d", err, total)
	}
	high, err := repo.CountHighRiskByChatbotIDs(dbc, ids, 0.851)
	if err != nil || high != 1 {
		t.Fatalf("CountHighRiskByChatbotIDs: err=%v high=%d", err, high)
	}
	avg, n, err := repo.AvgRiskAnalyzedByChatbotIDs(dbc, ids)
	if err != nil || n != 2 {
		t.Fatalf("AvgRiskAnalyzedByChatbotIDs: err=%v n=%d", err, n)
	}
	if avg < 0.599 || avg > 0.601 {
		t.Fatalf("AvgRiskAnalyzedByChatbotIDs: expected 0.6, got %v", avg)
	}

	if err := repo.UpdateFields(dbc, uuid.New(), map[string]interface{}{"guardian_analyzed": true}); !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("UpdateFields(missing): expected ErrNotFound, got %v", err)
	}
}

func TestChatbotRepoListIDsByUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "bots@example.com")
	other := testutil.SeedUser(t, ctx, tx, "otherbots@example.com")
	testutil.SeedChatbot(t, ctx, tx, u.ID)
	testutil.SeedChatbot(t, ctx, tx, u.ID)
	testutil.SeedChatbot(t, ctx, tx, other.ID)

	repo := NewChatbotRepo(db, testutil.Logger(t))
	ids, err := repo.ListIDsByUser(dbc, u.ID)
	if err != nil {
		t.Fatalf("ListIDsByUser: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ListIDsByUser: expected 2, got %d", len(ids))
	}

	guests := NewGuestRepo(db, testutil.Logger(t))
	g := testutil.SeedGuest(t, ctx, tx, "guest@example.com", "en")
	gotGuest, err := guests.GetByID(dbc, g.ID)
	if err != nil || gotGuest.Email != "guest@example.com" {
		t.Fatalf("GuestRepo.GetByID: err=%v got=%+v", err, gotGuest)
	}
}
