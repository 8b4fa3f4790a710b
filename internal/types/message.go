package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn in a chat's chronological sequence. Within a chat,
// messages are totally ordered by CreatedAt. A user message may have its
// content replaced in place by an edit; role and chat never change.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index:idx_message_chat_created;column:chat_id" json:"chat_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	Role      string    `gorm:"not null;column:role" json:"role"`
	Content   string    `gorm:"not null;column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;index:idx_message_chat_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Message) TableName() string {
	return "message"
}
