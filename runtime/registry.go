// Package runtime holds the in-memory, process-lifetime state of the relay:
// who is online, who is typing, and the fan-out of events to live
// connections. It orchestrates propagation without containing business
// rules or persistence.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// Registry is the presence source of truth: a bidirectional map between an
// identity and its single live connection slot. A new announce for an
// identity supersedes the previous connection, so one identity occupies
// exactly one presence slot regardless of device count. That supersession is
// an explicit policy, not an accident: it is what defines multi-device
// behavior for the whole system.
//
// Registry operations never fail. Loss of its state on restart is tolerated;
// clients re-announce on reconnect.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[string]contract.EventSink // identity -> live sink
	owners   map[contract.EventSink]string // sink -> identity
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[string]contract.EventSink),
		owners:   make(map[contract.EventSink]string),
	}
}

// Announce registers a connection under an identity. The announcing
// connection alone receives the full current online set; everyone else gets
// a user-joined event.
func (r *Registry) Announce(ctx context.Context, identity string, sink contract.EventSink) {
	r.mu.Lock()
	if old, ok := r.sessions[identity]; ok {
		// Supersession: the old connection loses its slot and will be a
		// no-op on withdraw.
		delete(r.owners, old)
		r.log.Debug("Superseding previous connection", "identity", identity)
	}
	r.sessions[identity] = sink
	r.owners[sink] = identity
	online := r.onlineSetLocked()
	r.mu.Unlock()

	r.log.Info("User announced", "identity", identity)

	r.consume(ctx, sink, event.OnlineSet{Identities: online})
	r.BroadcastExcept(ctx, event.UserJoined{Identity: identity}, sink)
}

// Withdraw removes the identity owning the connection, if any. A connection
// that was never registered, or that was superseded by a newer announce, is
// silently ignored.
func (r *Registry) Withdraw(ctx context.Context, sink contract.EventSink) {
	r.mu.Lock()
	identity, ok := r.owners[sink]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.owners, sink)
	delete(r.sessions, identity)
	online := r.onlineSetLocked()
	r.mu.Unlock()

	r.log.Info("User withdrawn", "identity", identity)

	r.Broadcast(ctx, event.UserLeft{Identity: identity})
	r.Broadcast(ctx, event.OnlineSet{Identities: online})
}

func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[identity]
	return ok
}

func (r *Registry) OnlineSet() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineSetLocked()
}

func (r *Registry) onlineSetLocked() []string {
	identities := make([]string, 0, len(r.sessions))
	for identity := range r.sessions {
		identities = append(identities, identity)
	}
	return identities
}

// SinkOf resolves the live connection of an identity, if one exists.
func (r *Registry) SinkOf(identity string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[identity]
	return sink, ok
}

// Broadcast pushes an event to every live connection. Consume errors are
// logged and skipped: delivering to zero or fewer connections is a normal
// outcome, never an exceptional one.
func (r *Registry) Broadcast(ctx context.Context, e event.DomainEvent) {
	r.BroadcastExcept(ctx, e, nil)
}

// BroadcastExcept behaves like Broadcast but skips one connection,
// typically the originator of the event.
func (r *Registry) BroadcastExcept(ctx context.Context, e event.DomainEvent, except contract.EventSink) {
	r.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		if sink != except {
			sinks = append(sinks, sink)
		}
	}
	r.mu.RUnlock()

	// Fan-out happens outside the lock: a slow sink must not stall
	// announce/withdraw bookkeeping.
	for _, sink := range sinks {
		r.consume(ctx, sink, e)
	}
}

func (r *Registry) consume(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		r.log.Debug("Sink dropped event", "event", e.EventName(), "error", err)
	}
}
