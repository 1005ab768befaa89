package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/murmurapp/murmur-backend/internal/models"
)

const inboxChannelPrefix = "inbox:"

// InboxEvent is the payload broadcast over Redis and the inbox WebSocket.
type InboxEvent struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// InboxConn is the minimal interface a WebSocket connection must satisfy.
type InboxConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// InboxNotifier fans delivery events out to connected owners. Events go
// through Redis Pub/Sub so every server instance sees them; each instance
// then forwards to its locally connected sockets.
type InboxNotifier struct {
	rdb *redis.Client

	mu          sync.RWMutex
	connections map[string]InboxConn // owner id hex -> connection

	started sync.Once
}

func NewInboxNotifier(rdb *redis.Client) *InboxNotifier {
	return &InboxNotifier{
		rdb:         rdb,
		connections: make(map[string]InboxConn),
	}
}

// Register attaches (or replaces) an owner's connection.
func (n *InboxNotifier) Register(ownerID primitive.ObjectID, conn InboxConn) {
	n.mu.Lock()
	if old, ok := n.connections[ownerID.Hex()]; ok {
		old.Close()
	}
	n.connections[ownerID.Hex()] = conn
	n.mu.Unlock()
}

// Unregister detaches an owner's connection if it is still the given one.
func (n *InboxNotifier) Unregister(ownerID primitive.ObjectID, conn InboxConn) {
	n.mu.Lock()
	if cur, ok := n.connections[ownerID.Hex()]; ok && cur == conn {
		delete(n.connections, ownerID.Hex())
	}
	n.mu.Unlock()
}

// NotifyMessage publishes a message_received event for the owner. Failures
// are logged and swallowed: notification is auxiliary to delivery.
func (n *InboxNotifier) NotifyMessage(ctx context.Context, ownerID primitive.ObjectID, msg models.Message) {
	event := InboxEvent{
		Type:      "message_received",
		MessageID: msg.ID.Hex(),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("inbox event marshal failed: %v", err)
		return
	}
	if err := n.rdb.Publish(ctx, inboxChannelPrefix+ownerID.Hex(), payload).Err(); err != nil {
		log.Printf("inbox event publish failed: %v", err)
	}
}

// Start launches the Redis subscriber loop once. ctx cancellation stops it.
func (n *InboxNotifier) Start(ctx context.Context) {
	n.started.Do(func() {
		go n.subscribeLoop(ctx)
	})
}

func (n *InboxNotifier) subscribeLoop(ctx context.Context) {
	pubsub := n.rdb.PSubscribe(ctx, inboxChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			ownerHex := strings.TrimPrefix(m.Channel, inboxChannelPrefix)

			var event InboxEvent
			if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
				log.Printf("inbox event unmarshal failed: %v", err)
				continue
			}
			n.fanOut(ownerHex, event)
		}
	}
}

func (n *InboxNotifier) fanOut(ownerHex string, event InboxEvent) {
	n.mu.RLock()
	conn, ok := n.connections[ownerHex]
	n.mu.RUnlock()
	if !ok {
		return
	}
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("inbox event write to %s failed: %v", ownerHex, err)
	}
}
