package model

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerId   string    `gorm:"type:varchar(255);not null;index"` // external identity subject
	Title     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;index;autoUpdateTime:false"`

	Messages []ChatMessage `gorm:"foreignKey:ChatId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (Chat) TableName() string {
	return "chats"
}
