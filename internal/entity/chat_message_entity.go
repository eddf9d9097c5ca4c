package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleSystem, MessageRoleUser, MessageRoleAssistant:
		return true
	}
	return false
}

func (r MessageRole) String() string {
	return string(r)
}

// ParseMessageRole rejects anything outside the closed role set.
func ParseMessageRole(s string) (MessageRole, error) {
	r := MessageRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown message role %q", s)
	}
	return r, nil
}

type ChatMessage struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	Role      MessageRole
	Content   string
	Timestamp time.Time
}
