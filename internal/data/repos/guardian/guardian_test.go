package guardian

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
	"github.com/hostguard/guardian-backend/internal/pkg/pointers"
)

func TestGuardianAnalysisRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "analysis@example.com")
	cb := testutil.SeedChatbot(t, ctx, tx, u.ID)
	conv := testutil.SeedConversation(t, ctx, tx, cb.ID, nil)

	repo := NewGuardianAnalysisRepo(db, testutil.Logger(t))

	details, err := types.EncodeDetails(types.AnalysisDetails{Reasoning: "ok"})
	if err != nil {
		t.Fatalf("EncodeDetails: %v", err)
	}
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		row := &types.GuardianAnalysis{
			ConversationID:       conv.ID,
			RiskScore:            0.1 * float64(i+1),
			AnalysisDetails:      details,
			UserMessagesAnalyzed: 1,
			ConversationLength:   42,
			AnalyzedAt:           base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(dbc, row); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, err := repo.ListByConversation(dbc, conv.ID, 10)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(rows) != 2 || rows[0].RiskScore < rows[1].RiskScore {
		t.Fatalf("ListByConversation: expected newest first, got %+v", rows)
	}
	d, err := rows[0].Details()
	if err != nil || d.Reasoning != "ok" || d.KeyIssues == nil {
		t.Fatalf("Details: err=%v d=%+v", err, d)
	}
	n, err := repo.CountByConversation(dbc, conv.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountByConversation: err=%v n=%d", err, n)
	}
}

func TestGuardianAlertRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "alerts@example.com")
	other := testutil.SeedUser(t, ctx, tx, "alerts-other@example.com")
	cb := testutil.SeedChatbot(t, ctx, tx, u.ID)
	conv := testutil.SeedConversation(t, ctx, tx, cb.ID, nil)

	repo := NewGuardianAlertRepo(db, testutil.Logger(t))

	open := testutil.SeedAlert(t, ctx, tx, u.ID, conv.ID, 0.9, false)
	testutil.SeedAlert(t, ctx, tx, u.ID, conv.ID, 0.96, true)
	testutil.SeedAlert(t, ctx, tx, other.ID, conv.ID, 0.96, true)

	exists, err := repo.ExistsUnresolved(dbc, conv.ID)
	if err != nil || !exists {
		t.Fatalf("ExistsUnresolved: err=%v exists=%v", err, exists)
	}

	resolved, err := repo.CountResolvedByUser(dbc, u.ID)
	if err != nil || resolved != 1 {
		t.Fatalf("CountResolvedByUser: err=%v n=%d", err, resolved)
	}

	all, err := repo.ListByUser(dbc, u.ID, AlertListFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(all))
	}
	onlyOpen, err := repo.ListByUser(dbc, u.ID, AlertListFilter{Resolved: pointers.Ptr(false)})
	if err != nil || len(onlyOpen) != 1 || onlyOpen[0].ID != open.ID {
		t.Fatalf("ListByUser(open): err=%v rows=%+v", err, onlyOpen)
	}

	now := time.Now().UTC()
	if err := repo.UpdateFields(dbc, open.ID, map[string]interface{}{
		"is_resolved": true,
		"resolved_at": now,
		"resolved_by": "host",
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, open.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsResolved || got.ResolvedBy != "host" || got.ResolvedAt == nil {
		t.Fatalf("GetByID: unexpected row: %+v", got)
	}

	exists, err = repo.ExistsUnresolved(dbc, conv.ID)
	if err != nil || exists {
		t.Fatalf("ExistsUnresolved(after resolve): err=%v exists=%v", err, exists)
	}

	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("GetByID(missing): expected ErrNotFound, got %v", err)
	}
}
