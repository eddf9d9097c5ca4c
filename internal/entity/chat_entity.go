package entity

import (
	"time"

	"github.com/google/uuid"
)

const DefaultChatTitle = "New Chat"

type Chat struct {
	Id        uuid.UUID
	OwnerId   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasDefaultTitle reports whether the title has not yet been derived from content.
func (c *Chat) HasDefaultTitle() bool {
	return c.Title == DefaultChatTitle
}
