package sink

import (
	"context"
	"log/slog"

	"chat-relay/domain/event"
)

// ConnSink is the in-process inbox of one live connection. The registry and
// relay Consume into the buffered channel; the connection's write pump
// drains it onto the wire.
type ConnSink struct {
	Events chan event.DomainEvent
	log    *slog.Logger
}

func NewConnSink(log *slog.Logger, bufferSize int) *ConnSink {
	return &ConnSink{
		Events: make(chan event.DomainEvent, bufferSize),
		log:    log,
	}
}

// Consume is called by the registry and the relay.
// It hands the event to the owning connection's channel; the write pump
// takes it from there. A full buffer drops the event rather than blocking
// the fan-out: backpressure from one slow client must not stall everyone.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Debug("Connection buffer full, dropping event", "event", e.EventName())
		return nil
	}
}
