package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"reddit-embeddings/internal/retry"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// PostgresSource LISTENs on a channel fed by the store's notify trigger. A dropped
// connection is re-established with capped backoff; notifications sent while
// disconnected are lost.
type PostgresSource struct {
	log     *slog.Logger
	dsn     string
	channel string
}

func NewPostgres(log *slog.Logger, dsn, channel string) *PostgresSource {
	return &PostgresSource{log: log, dsn: dsn, channel: channel}
}

func (s *PostgresSource) Run(ctx context.Context, handle Handler) error {
	attempt := 0
	for {
		connected, err := s.listen(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			attempt = 0
		}
		delay := retry.CappedBackoff(attempt, reconnectBase, reconnectMax)
		attempt++
		s.log.Warn("postgres listener disconnected", "err", err, "retry_in", delay.String())
		if err := retry.Sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

// listen reports whether LISTEN succeeded before the connection ended.
func (s *PostgresSource) listen(ctx context.Context, handle Handler) (bool, error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("listen %s: %w", s.channel, err)
	}
	s.log.Info("listening for change events", "transport", "postgres", "channel", s.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		if n == nil {
			return true, errors.New("empty notification")
		}
		dispatch(ctx, s.log, []byte(n.Payload), handle)
	}
}
