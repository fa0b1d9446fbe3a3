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

type MessageRepo interface {
	Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error)
	// LatestByRole returns nil, nil when the conversation has no message with that role.
	LatestByRole(dbc dbctx.Context, conversationID uuid.UUID, role string) (*types.Message, error)
	// ListByConversation returns messages oldest first.
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error) {
	if len(rows) == 0 {
		return []*types.Message{}, nil
	}
	for _, m := range rows {
		if m == nil {
			return nil, fmt.Errorf("nil message: %w", perrors.ErrInvalidArgument)
		}
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			return nil, fmt.Errorf("invalid role %q: %w", m.Role, perrors.ErrInvalidArgument)
		}
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) LatestByRole(dbc dbctx.Context, conversationID uuid.UUID, role string) (*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id: %w", perrors.ErrInvalidArgument)
	}
	var row types.Message
	err := dbc.Conn(r.db).
		Where("conversation_id = ? AND role = ?", conversationID, role).
		Order("created_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id: %w", perrors.ErrInvalidArgument)
	}
	var out []*types.Message
	if err := dbc.Conn(r.db).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
