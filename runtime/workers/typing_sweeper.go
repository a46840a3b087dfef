package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/runtime"
)

// TypingSweeper periodically expires stale typing entries. The explicit
// stop signal is still the clients' job; the sweeper only covers the case
// where a client vanished without ever sending it.
type TypingSweeper struct {
	log      *slog.Logger
	tracker  *runtime.TypingTracker
	ttl      time.Duration
	interval time.Duration
}

func NewTypingSweeper(log *slog.Logger, tracker *runtime.TypingTracker,
	ttl, interval time.Duration) *TypingSweeper {
	return &TypingSweeper{log: log, tracker: tracker, ttl: ttl, interval: interval}
}

func (w *TypingSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if expired := w.tracker.Expire(ctx, w.ttl); expired > 0 {
				w.log.Debug("Swept stale typing entries", "count", expired)
			}
		}
	}
}
