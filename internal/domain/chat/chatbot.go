package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chatbot is a guest-facing assistant owned by a host. Its ID is also the
// public identifier used in chat links.
type Chatbot struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string    `gorm:"column:name;not null;default:''" json:"name"`

	// OpenAI assistant backing this chatbot.
	AssistantID string `gorm:"column:assistant_id;not null;default:''" json:"assistant_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Chatbot) TableName() string { return "chatbot" }

func (c *Chatbot) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
