package guardian

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type AlertListFilter struct {
	// Resolved filters on is_resolved when set.
	Resolved *bool
	Limit    int
}

type GuardianAlertRepo interface {
	Create(dbc dbctx.Context, row *types.GuardianAlert) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GuardianAlert, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, f AlertListFilter) ([]*types.GuardianAlert, error)
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.GuardianAlert, error)
	ExistsUnresolved(dbc dbctx.Context, conversationID uuid.UUID) (bool, error)
	CountResolvedByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type guardianAlertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGuardianAlertRepo(db *gorm.DB, baseLog *logger.Logger) GuardianAlertRepo {
	return &guardianAlertRepo{db: db, log: baseLog.With("repo", "GuardianAlertRepo")}
}

func (r *guardianAlertRepo) Create(dbc dbctx.Context, row *types.GuardianAlert) error {
	if row == nil {
		return fmt.Errorf("nil alert: %w", perrors.ErrInvalidArgument)
	}
	if row.UserID == uuid.Nil || row.ConversationID == uuid.Nil {
		return fmt.Errorf("alert needs user_id and conversation_id: %w", perrors.ErrInvalidArgument)
	}
	return dbc.Conn(r.db).Create(row).Error
}

func (r *guardianAlertRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GuardianAlert, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing alert_id: %w", perrors.ErrInvalidArgument)
	}
	var row types.GuardianAlert
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %s: %w", id, perrors.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}

// ListByUser returns the user's alerts newest first.
func (r *guardianAlertRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, f AlertListFilter) ([]*types.GuardianAlert, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id: %w", perrors.ErrInvalidArgument)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := dbc.Conn(r.db).Where("user_id = ?", userID)
	if f.Resolved != nil {
		q = q.Where("is_resolved = ?", *f.Resolved)
	}
	var out []*types.GuardianAlert
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *guardianAlertRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.GuardianAlert, error) {
	var out []*types.GuardianAlert
	if err := dbc.Conn(r.db).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *guardianAlertRepo) ExistsUnresolved(dbc dbctx.Context, conversationID uuid.UUID) (bool, error) {
	var n int64
	if err := dbc.Conn(r.db).
		Model(&types.GuardianAlert{}).
		Where("conversation_id = ? AND is_resolved = ?", conversationID, false).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *guardianAlertRepo) CountResolvedByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.GuardianAlert{}).
		Where("user_id = ? AND is_resolved = ?", userID, true).
		Count(&n).Error
	return n, err
}

func (r *guardianAlertRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing alert_id: %w", perrors.ErrInvalidArgument)
	}
	if len(updates) == 0 {
		return nil
	}
	res := dbc.Conn(r.db).Model(&types.GuardianAlert{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("alert %s: %w", id, perrors.ErrNotFound)
	}
	return nil
}
