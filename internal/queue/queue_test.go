package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInMemory_PublishConsume round-trips messages through the channel
// backend.
func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Kind: KindCheckIn, SessionID: "s-1"}))
	require.NoError(t, q.Publish(ctx, Message{Kind: KindCheckIn, SessionID: "s-2"}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	msg := <-out
	assert.Equal(t, KindCheckIn, msg.Kind)
	assert.Equal(t, "s-1", msg.SessionID)
	msg = <-out
	assert.Equal(t, "s-2", msg.SessionID)
}

// TestInMemory_PublishCancelled returns the context error when full.
func TestInMemory_PublishCancelled(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, q.Publish(ctx, Message{Kind: KindCheckIn, SessionID: "s-1"}))
	err := q.Publish(ctx, Message{Kind: KindCheckIn, SessionID: "s-2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestSerializeRoundTrip covers the kind|sessionID wire form.
func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Kind: KindCheckIn, SessionID: "3b241101-e2bb-4255-8caf-4136c566a962"}
	assert.Equal(t, msg, deserialize(serialize(msg)))

	// Legacy/garbage payloads degrade to a bare session id.
	assert.Equal(t, Message{SessionID: "no-separator"}, deserialize("no-separator"))
}
