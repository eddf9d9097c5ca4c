package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatId    uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_chat_created,priority:1"`
	Role      string    `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false;index:idx_chat_messages_chat_created,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// All returns every model managed by migrations, parents first.
func All() []interface{} {
	return []interface{}{
		&Chat{},
		&ChatMessage{},
	}
}
