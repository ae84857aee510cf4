package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSettings holds the quotation defaults of one user. Sessions opened
// without an explicit currency or page size start from these.
type UserSettings struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Currency  string `gorm:"size:3;not null" json:"currency"`
	PageLimit int    `gorm:"not null" json:"page_limit"`
}

// BeforeCreate generates a UUID before creating new settings
func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the UserSettings model
func (UserSettings) TableName() string {
	return "user_settings"
}
