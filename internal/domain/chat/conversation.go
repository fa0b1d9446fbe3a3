package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is one guest session with one chatbot. The guardian_* columns
// are owned by the Guardian analyzer; guardian_risk_score always holds the
// latest analysis, not a running maximum.
type Conversation struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ChatbotID uuid.UUID  `gorm:"type:uuid;not null;index" json:"chatbot_id"`
	GuestID   *uuid.UUID `gorm:"type:uuid;index" json:"guest_id,omitempty"`
	ThreadID  string     `gorm:"column:thread_id;not null;default:''" json:"thread_id"`

	StartedAt    time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt      *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	MessageCount int        `gorm:"column:message_count;not null;default:0" json:"message_count"`

	GuardianAnalyzed       bool    `gorm:"column:guardian_analyzed;not null;default:false;index" json:"guardian_analyzed"`
	GuardianRiskScore      float64 `gorm:"column:guardian_risk_score;not null;default:0" json:"guardian_risk_score"`
	GuardianAlertTriggered bool    `gorm:"column:guardian_alert_triggered;not null;default:false" json:"guardian_alert_triggered"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	return nil
}
