package events

import "time"

// Chat event types. The NATS subject is "events.<type>".
const (
	TypeChatCreated         = "chat.created"
	TypeChatRenamed         = "chat.renamed"
	TypeChatDeleted         = "chat.deleted"
	TypeChatMessageAppended = "chat.message_appended"
)

// Event defines the contract for all system events.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent is the wire shape shared by the in-process bus and the NATS relay.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// OwnerID returns the "owner_id" payload field, if present.
func OwnerID(e Event) string {
	if v, ok := e.Payload()["owner_id"].(string); ok {
		return v
	}
	return ""
}
