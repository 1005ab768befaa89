package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeConn struct {
	written []interface{}
	closed  bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestNotifierRegisterReplacesConnection(t *testing.T) {
	n := NewInboxNotifier(nil)
	ownerID := primitive.NewObjectID()

	first := &fakeConn{}
	second := &fakeConn{}

	n.Register(ownerID, first)
	n.Register(ownerID, second)
	assert.True(t, first.closed)
	assert.False(t, second.closed)

	event := InboxEvent{Type: "message_received", Content: "hi there everyone", CreatedAt: time.Now()}
	n.fanOut(ownerID.Hex(), event)

	assert.Empty(t, first.written)
	require.Len(t, second.written, 1)
	assert.Equal(t, event, second.written[0])
}

func TestNotifierUnregisterOnlyRemovesCurrent(t *testing.T) {
	n := NewInboxNotifier(nil)
	ownerID := primitive.NewObjectID()

	first := &fakeConn{}
	second := &fakeConn{}

	n.Register(ownerID, first)
	n.Register(ownerID, second)

	// A stale socket closing must not tear down its replacement.
	n.Unregister(ownerID, first)
	n.fanOut(ownerID.Hex(), InboxEvent{Type: "message_received"})
	assert.Len(t, second.written, 1)

	n.Unregister(ownerID, second)
	n.fanOut(ownerID.Hex(), InboxEvent{Type: "message_received"})
	assert.Len(t, second.written, 1)
}

func TestNotifierFanOutUnknownOwnerIsNoop(t *testing.T) {
	n := NewInboxNotifier(nil)
	n.fanOut(primitive.NewObjectID().Hex(), InboxEvent{Type: "message_received"})
}
