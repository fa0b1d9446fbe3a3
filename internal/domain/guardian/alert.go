package guardian

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AlertTypeNegativeReviewRisk = "negative_review_risk"
	AlertTypeInsufficientInfo   = "insufficient_info"
)

const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// GuardianAlert is a host-facing notice that a conversation carries review
// risk. Once IsResolved is set it is never cleared.
type GuardianAlert struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`

	AlertType string  `gorm:"column:alert_type;not null;index" json:"alert_type"`
	Severity  string  `gorm:"column:severity;not null;index" json:"severity"`
	RiskScore float64 `gorm:"column:risk_score;not null" json:"risk_score"`

	Message             string `gorm:"column:message;type:text;not null" json:"message"`
	SuggestedAction     string `gorm:"column:suggested_action;type:text;not null" json:"suggested_action"`
	ConversationSummary string `gorm:"column:conversation_summary;type:text;not null" json:"conversation_summary"`

	IsResolved bool       `gorm:"column:is_resolved;not null;default:false;index" json:"is_resolved"`
	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy string     `gorm:"column:resolved_by;not null;default:''" json:"resolved_by,omitempty"`

	EmailSent   bool       `gorm:"column:email_sent;not null;default:false" json:"email_sent"`
	EmailSentAt *time.Time `gorm:"column:email_sent_at" json:"email_sent_at,omitempty"`
	SMSSent     bool       `gorm:"column:sms_sent;not null;default:false" json:"sms_sent"`
	SMSSentAt   *time.Time `gorm:"column:sms_sent_at" json:"sms_sent_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (GuardianAlert) TableName() string { return "guardian_alert" }

func (a *GuardianAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
