package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultLanguage = "it"

// User is a host: the owner of one or more chatbots.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	FirstName string    `gorm:"not null;column:first_name;default:''" json:"first_name"`
	LastName  string    `gorm:"not null;column:last_name;default:''" json:"last_name"`
	Language  string    `gorm:"not null;column:language;default:'it'" json:"language"`

	// Verified E.164 number, used for critical Guardian alerts.
	Phone string `gorm:"column:phone;not null;default:''" json:"phone,omitempty"`

	SubscriptionStatus string     `gorm:"column:subscription_status;not null;default:'inactive';index" json:"subscription_status"`
	SubscriptionEndsAt *time.Time `gorm:"column:subscription_ends_at" json:"subscription_ends_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// PreferredLanguage falls back to DefaultLanguage when unset.
func (u *User) PreferredLanguage() string {
	if u == nil {
		return DefaultLanguage
	}
	if l := strings.ToLower(strings.TrimSpace(u.Language)); l != "" {
		return l
	}
	return DefaultLanguage
}
