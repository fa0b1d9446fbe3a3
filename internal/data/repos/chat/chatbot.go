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

type ChatbotRepo interface {
	Create(dbc dbctx.Context, rows []*types.Chatbot) ([]*types.Chatbot, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chatbot, error)
	ListIDsByUser(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type chatbotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatbotRepo(db *gorm.DB, baseLog *logger.Logger) ChatbotRepo {
	return &chatbotRepo{db: db, log: baseLog.With("repo", "ChatbotRepo")}
}

func (r *chatbotRepo) Create(dbc dbctx.Context, rows []*types.Chatbot) ([]*types.Chatbot, error) {
	if len(rows) == 0 {
		return []*types.Chatbot{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatbotRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chatbot, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing chatbot_id: %w", perrors.ErrInvalidArgument)
	}
	var row types.Chatbot
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chatbot %s: %w", id, perrors.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}

func (r *chatbotRepo) ListIDsByUser(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := dbc.Conn(r.db).
		Model(&types.Chatbot{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
