package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"

	"github.com/google/uuid"
)

// TypingTracker keeps the per-conversation set of identities currently
// composing a message. Purely ephemeral: nothing is persisted, nothing
// errors, and the whole state evaporates on restart.
//
// Callers own the primary stop contract: clients emit an explicit stop after
// one second without keystrokes. The tracker additionally expires entries
// whose last signal is older than a TTL (see TypingSweeper), which covers
// clients that disconnect abruptly without ever sending the stop.
type TypingTracker struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry contract.IPresence
	typing   map[uuid.UUID]map[string]typingEntry
}

type typingEntry struct {
	displayName string
	lastSignal  time.Time
}

func NewTypingTracker(log *slog.Logger, registry contract.IPresence) *TypingTracker {
	return &TypingTracker{
		log:      log,
		registry: registry,
		typing:   make(map[uuid.UUID]map[string]typingEntry),
	}
}

// SetTyping records or clears a (conversation, identity) typing entry and
// relays the signal to every live connection except the originating one.
func (t *TypingTracker) SetTyping(ctx context.Context, conversationID uuid.UUID, identity, displayName string, isTyping bool, origin contract.EventSink) {
	t.mu.Lock()
	if isTyping {
		if _, ok := t.typing[conversationID]; !ok {
			t.typing[conversationID] = make(map[string]typingEntry)
		}
		t.typing[conversationID][identity] = typingEntry{
			displayName: displayName,
			lastSignal:  time.Now(),
		}
	} else {
		t.removeLocked(conversationID, identity)
	}
	t.mu.Unlock()

	t.registry.BroadcastExcept(ctx, event.TypingChanged{
		ConversationID: conversationID,
		Identity:       identity,
		DisplayName:    displayName,
		IsTyping:       isTyping,
	}, origin)
}

func (t *TypingTracker) IsTyping(conversationID uuid.UUID, identity string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.typing[conversationID][identity]
	return ok
}

// WithdrawIdentity drops every typing entry of a disconnecting identity and
// broadcasts a synthetic stopped event for each, so peers never keep a
// typing indicator for a connection that is already gone. The sweeper only
// covers disconnects that never reached this path.
func (t *TypingTracker) WithdrawIdentity(ctx context.Context, identity string) {
	t.mu.Lock()
	var stopped []event.TypingChanged
	for conversationID, entries := range t.typing {
		entry, ok := entries[identity]
		if !ok {
			continue
		}
		stopped = append(stopped, event.TypingChanged{
			ConversationID: conversationID,
			Identity:       identity,
			DisplayName:    entry.displayName,
			IsTyping:       false,
		})
		t.removeLocked(conversationID, identity)
	}
	t.mu.Unlock()

	for _, evt := range stopped {
		t.registry.Broadcast(ctx, evt)
	}
}

// Expire clears entries whose last signal is older than ttl and broadcasts
// a typing-stopped event for each, so peers never stare at a stale
// indicator after an abrupt disconnect.
func (t *TypingTracker) Expire(ctx context.Context, ttl time.Duration) int {
	now := time.Now()

	t.mu.Lock()
	var stale []event.TypingChanged
	for conversationID, entries := range t.typing {
		for identity, entry := range entries {
			if now.Sub(entry.lastSignal) > ttl {
				stale = append(stale, event.TypingChanged{
					ConversationID: conversationID,
					Identity:       identity,
					DisplayName:    entry.displayName,
					IsTyping:       false,
				})
				t.removeLocked(conversationID, identity)
			}
		}
	}
	t.mu.Unlock()

	for _, evt := range stale {
		t.log.Debug("Expiring stale typing entry",
			"conversation", evt.ConversationID, "identity", evt.Identity)
		t.registry.Broadcast(ctx, evt)
	}
	return len(stale)
}

func (t *TypingTracker) removeLocked(conversationID uuid.UUID, identity string) {
	entries, ok := t.typing[conversationID]
	if !ok {
		return
	}
	delete(entries, identity)
	if len(entries) == 0 {
		delete(t.typing, conversationID)
	}
}
