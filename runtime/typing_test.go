package runtime

import (
	"context"
	"testing"
	"time"

	"chat-relay/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTypingTracker_SetTyping_Relays_To_Peers_Only(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testLogger())
	tracker := NewTypingTracker(testLogger(), registry)
	ctx := context.Background()
	conversationID := uuid.New()

	aliceSink := &recordingSink{}
	bobSink := &recordingSink{}
	registry.Announce(ctx, "alice@example.com", aliceSink)
	registry.Announce(ctx, "bob@example.com", bobSink)

	// When alice starts typing
	tracker.SetTyping(ctx, conversationID, "alice@example.com", "Alice", true, aliceSink)

	// Then the entry is tracked
	req.True(tracker.IsTyping(conversationID, "alice@example.com"))

	// And bob got the typing event while alice did not see her own
	req.Contains(bobSink.Names(), "typing")
	req.NotContains(aliceSink.Names(), "typing")

	// When alice stops typing
	tracker.SetTyping(ctx, conversationID, "alice@example.com", "Alice", false, aliceSink)

	// Then the entry is gone and the stop was relayed
	req.False(tracker.IsTyping(conversationID, "alice@example.com"))
	typingEvents := typingEventsOf(bobSink)
	req.Len(typingEvents, 2)
	req.True(typingEvents[0].IsTyping)
	req.False(typingEvents[1].IsTyping)
}

func TestTypingTracker_WithdrawIdentity_Broadcasts_Stop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testLogger())
	tracker := NewTypingTracker(testLogger(), registry)
	ctx := context.Background()
	conversationID := uuid.New()

	aliceSink := &recordingSink{}
	peer := &recordingSink{}
	registry.Announce(ctx, "alice@example.com", aliceSink)
	registry.Announce(ctx, "bob@example.com", peer)
	tracker.SetTyping(ctx, conversationID, "alice@example.com", "Alice", true, aliceSink)

	// When alice's connection disconnects without ever sending the stop
	registry.Withdraw(ctx, aliceSink)
	tracker.WithdrawIdentity(ctx, "alice@example.com")

	// Then her entry is gone and the peer saw a synthetic stop
	req.False(tracker.IsTyping(conversationID, "alice@example.com"))
	typingEvents := typingEventsOf(peer)
	req.Len(typingEvents, 2)
	last := typingEvents[len(typingEvents)-1]
	req.False(last.IsTyping)
	req.Equal("alice@example.com", last.Identity)
	req.Equal(conversationID, last.ConversationID)
}

func TestTypingTracker_WithdrawIdentity_Covers_Every_Conversation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testLogger())
	tracker := NewTypingTracker(testLogger(), registry)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()
	peer := &recordingSink{}
	registry.Announce(ctx, "bob@example.com", peer)

	tracker.SetTyping(ctx, first, "alice@example.com", "Alice", true, nil)
	tracker.SetTyping(ctx, second, "alice@example.com", "Alice", true, nil)
	// carol keeps typing and must be untouched by alice's withdrawal
	tracker.SetTyping(ctx, first, "carol@example.com", "Carol", true, nil)

	tracker.WithdrawIdentity(ctx, "alice@example.com")

	req.False(tracker.IsTyping(first, "alice@example.com"))
	req.False(tracker.IsTyping(second, "alice@example.com"))
	req.True(tracker.IsTyping(first, "carol@example.com"))

	stops := 0
	for _, evt := range typingEventsOf(peer) {
		if !evt.IsTyping && evt.Identity == "alice@example.com" {
			stops++
		}
	}
	req.Equal(2, stops)
}

func TestTypingTracker_Expire_Broadcasts_Stop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testLogger())
	tracker := NewTypingTracker(testLogger(), registry)
	ctx := context.Background()
	conversationID := uuid.New()
	peer := &recordingSink{}
	registry.Announce(ctx, "bob@example.com", peer)

	// Given a typing entry that went stale
	tracker.SetTyping(ctx, conversationID, "alice@example.com", "Alice", true, nil)
	time.Sleep(20 * time.Millisecond)

	// When the tracker expires entries older than the TTL
	expired := tracker.Expire(ctx, 10*time.Millisecond)

	// Then the stale entry was swept and a synthetic stop was broadcast
	req.Equal(1, expired)
	req.False(tracker.IsTyping(conversationID, "alice@example.com"))
	typingEvents := typingEventsOf(peer)
	req.NotEmpty(typingEvents)
	last := typingEvents[len(typingEvents)-1]
	req.False(last.IsTyping)
	req.Equal("alice@example.com", last.Identity)
}

func TestTypingTracker_Expire_Keeps_Fresh_Entries(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testLogger())
	tracker := NewTypingTracker(testLogger(), registry)
	ctx := context.Background()
	conversationID := uuid.New()

	tracker.SetTyping(ctx, conversationID, "alice@example.com", "Alice", true, nil)

	// When expiring with a generous TTL
	expired := tracker.Expire(ctx, time.Minute)

	// Then nothing was swept
	req.Zero(expired)
	req.True(tracker.IsTyping(conversationID, "alice@example.com"))
}

func typingEventsOf(sink *recordingSink) []event.TypingChanged {
	var out []event.TypingChanged
	for _, e := range sink.Events() {
		if typing, ok := e.(event.TypingChanged); ok {
			out = append(out, typing)
		}
	}
	return out
}
