package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries deliveries between instances sharing one Redis.
const ClusterChannel = "cluster_events"

type clusterMessage struct {
	Origin        string          `json:"origin"`
	TargetOwnerID string          `json:"target_owner_id"`
	Message       json.RawMessage `json:"message"`
}

type Hub struct {
	// Owner id -> connected clients (multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Optional; nil keeps delivery local to this instance.
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.OwnerID] = append(h.clients[client.OwnerID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"owner_id": client.OwnerID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.OwnerID]
			for i, c := range clients {
				if c == client {
					h.clients[client.OwnerID] = append(clients[:i], clients[i+1:]...)
					close(client.Send)
					break
				}
			}
			if len(h.clients[client.OwnerID]) == 0 {
				delete(h.clients, client.OwnerID)
				h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"owner_id": client.OwnerID})
			}
			h.mu.Unlock()
		}
	}
}

// ConnectedClients reports how many connections ownerId has on this instance.
func (h *Hub) ConnectedClients(ownerId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerId])
}

// SendToOwner delivers payload to every connection of ownerId, here and on
// other instances.
func (h *Hub) SendToOwner(ownerId string, payload []byte) {
	h.deliverLocal(ownerId, payload)

	if h.rdb == nil {
		return
	}
	msg, err := json.Marshal(clusterMessage{Origin: h.instanceID, TargetOwnerID: ownerId, Message: payload})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode cluster message", map[string]interface{}{"error": err})
		return
	}
	if err := h.rdb.Publish(context.Background(), ClusterChannel, msg).Err(); err != nil {
		h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{"error": err.Error()})
	}
}

// deliverLocal never blocks: a client whose buffer is full misses the message.
func (h *Hub) deliverLocal(ownerId string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[ownerId] {
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"owner_id": ownerId})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(payload.TargetOwnerID, payload.Message)
		}
	}
}
