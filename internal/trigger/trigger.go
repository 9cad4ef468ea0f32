// Package trigger delivers database change events to a handler. Each Source plays
// the part of the hosting trigger runtime: it invokes the handler once per event
// and never re-queues one.
package trigger

import (
	"context"
	"log/slog"

	"reddit-embeddings/internal/event"
)

// Handler processes one change event.
type Handler func(ctx context.Context, ev event.ChangeEvent)

// Source runs until ctx is cancelled or the underlying connection fails for good.
type Source interface {
	Run(ctx context.Context, handle Handler) error
}

// dispatch decodes an Extended JSON payload and hands it to handle. Payloads that
// do not decode are logged and dropped.
func dispatch(ctx context.Context, log *slog.Logger, data []byte, handle Handler) {
	ev, err := event.Decode(data)
	if err != nil {
		log.Error("failed to decode change event", "err", err, "bytes", len(data))
		return
	}
	handle(ctx, ev)
}
