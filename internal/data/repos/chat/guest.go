package chat

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

type GuestRepo interface {
	Create(dbc dbctx.Context, rows []*types.Guest) ([]*types.Guest, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Guest, error)
}

type guestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGuestRepo(db *gorm.DB, baseLog *logger.Logger) GuestRepo {
	return &guestRepo{db: db, log: baseLog.With("repo", "GuestRepo")}
}

func (r *guestRepo) Create(dbc dbctx.Context, rows []*types.Guest) ([]*types.Guest, error) {
	if len(rows) == 0 {
		return []*types.Guest{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *guestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Guest, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing guest_id: %w", perrors.ErrInvalidArgument)
	}
	var row types.Guest
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("guest %s: %w", id, perrors.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}
