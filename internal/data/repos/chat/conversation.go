package chat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type ConversationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error)
	// GetByIDForUpdate locks the row on dialects that support it.
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	IncrementMessageCount(dbc dbctx.Context, id uuid.UUID, delta int) error
	CountByChatbotIDs(dbc dbctx.Context, chatbotIDs []uuid.UUID) (int64, error)
	CountHighRiskByChatbotIDs(dbc dbctx.Context, chatbotIDs []uuid.UUID, threshold float64) (int64, error)
	AvgRiskAnalyzedByChatbotIDs(dbc dbctx.Context, chatbotIDs []uuid.UUID) (avg float64, n int64, err error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error) {
	if len(rows) == 0 {
		return []*types.Conversation{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *conversationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error) {
	return r.get(dbc.Conn(r.db), id)
}

func (r *conversationRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error) {
	q := dbc.Conn(r.db)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, id)
}

func (r *conversationRepo) get(q *gorm.DB, id uuid.UUID) (*types.Conversation, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id: %w", perrors.ErrInvalidArgument)
	}
	var row types.Conversation
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation %s: %w", id, perrors.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}

func (r *conversationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing conversation_id: %w", perrors.ErrInvalidArgument)
	}
	if len(updates) == 0 {
		return nil
	}
	res := dbc.Conn(r.db).Model(&types.Conversation{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("conversation %s: %w", id, perrors.ErrNotFound)
	}
	return nil
}

func (r *conversationRepo) IncrementMessageCount(dbc dbctx.Context, id uuid.UUID, delta int) error {
	if id == uuid.Nil || delta == 0 {
		return nil
	}
	return dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("message_count", gorm.Expr("message_count + ?", delta)).Error
}

func (r *conversationRepo) CountByChatbotIDs(dbc dbctx.Context, chatbotIDs []uuid.UUID) (int64, error) {
	if len(chatbotIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Where("chatbot_id IN ?", chatbotIDs).
		Count(&n).Error
	return n, err
}

func (r *conversationRepo) CountHighRiskByChatbotIDs(dbc dbctx.Context, chatbotIDs []uuid.UUID, threshold float64) (int64, error) {
	if len(chatbotIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Where("chatbot_id IN ? AND guardian_risk_score >= ?", chatbotIDs, threshold).
		Count(&n).Error
	return n, err
}

func (r *conversationRepo) AvgRiskAnalyzedByChatbotIDs(dbc dbctx.Context, chatbotIDs []uuid.UUID) (float64, int64, error) {
	if len(chatbotIDs) == 0 {
		return 0, 0, nil
	}
	var agg struct {
		Avg *float64
		N   int64
	}
	err := dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Select("AVG(guardian_risk_score) AS avg, COUNT(*) AS n").
		Where("chatbot_id IN ? AND guardian_analyzed = ?", chatbotIDs, true).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}
	if agg.Avg == nil || agg.N == 0 {
		return 0, 0, nil
	}
	return *agg.Avg, agg.N, nil
}
