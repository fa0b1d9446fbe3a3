package guardian

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	perrors "github.com/hostguard/guardian-backend/internal/pkg/errors"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

// GuardianAnalysisRepo is append-only.
type GuardianAnalysisRepo interface {
	Create(dbc dbctx.Context, row *types.GuardianAnalysis) error
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.GuardianAnalysis, error)
	CountByConversation(dbc dbctx.Context, conversationID uuid.UUID) (int64, error)
}

type guardianAnalysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGuardianAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) GuardianAnalysisRepo {
	return &guardianAnalysisRepo{db: db, log: baseLog.With("repo", "GuardianAnalysisRepo")}
}

func (r *guardianAnalysisRepo) Create(dbc dbctx.Context, row *types.GuardianAnalysis) error {
	if row == nil {
		return fmt.Errorf("nil analysis: %w", perrors.ErrInvalidArgument)
	}
	if row.ConversationID == uuid.Nil {
		return fmt.Errorf("missing conversation_id: %w", perrors.ErrInvalidArgument)
	}
	return dbc.Conn(r.db).Create(row).Error
}

// ListByConversation returns analyses newest first.
func (r *guardianAnalysisRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.GuardianAnalysis, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id: %w", perrors.ErrInvalidArgument)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.GuardianAnalysis
	if err := dbc.Conn(r.db).
		Where("conversation_id = ?", conversationID).
		Order("analyzed_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *guardianAnalysisRepo) CountByConversation(dbc dbctx.Context, conversationID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.GuardianAnalysis{}).
		Where("conversation_id = ?", conversationID).
		Count(&n).Error
	return n, err
}
