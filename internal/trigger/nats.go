package trigger

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSSource consumes change events published on a NATS subject. Replicas share
// the queue group so each event reaches one of them.
type NATSSource struct {
	log     *slog.Logger
	nc      *nats.Conn
	subject string
	group   string
}

func NewNATS(log *slog.Logger, nc *nats.Conn, subject, group string) *NATSSource {
	return &NATSSource{log: log, nc: nc, subject: subject, group: group}
}

func (s *NATSSource) Run(ctx context.Context, handle Handler) error {
	sub, err := s.nc.QueueSubscribe(s.subject, s.group, func(msg *nats.Msg) {
		dispatch(ctx, s.log, msg.Data, handle)
	})
	if err != nil {
		return err
	}
	s.log.Info("listening for change events", "transport", "nats", "subject", s.subject, "group", s.group)
	<-ctx.Done()
	return sub.Unsubscribe()
}
