package types

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a named, user-owned container of messages (a "thread").
type Chat struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Title        string    `gorm:"not null;column:title" json:"title"`
	LastActivity time.Time `gorm:"not null;column:last_activity" json:"last_activity"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (Chat) TableName() string {
	return "chat"
}
