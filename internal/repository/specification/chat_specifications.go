package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

// OwnedBy restricts chats to a single identity.
type OwnedBy struct {
	OwnerID string
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

// MostRecentlyActive orders chats by last activity, newest first.
func MostRecentlyActive() []Specification {
	return []Specification{
		OrderBy{Field: "updated_at", Desc: true},
		OrderBy{Field: "created_at", Desc: true},
	}
}

// Chronological orders messages oldest first.
func Chronological() Specification {
	return OrderBy{Field: "created_at", Desc: false}
}
