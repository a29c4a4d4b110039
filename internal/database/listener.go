package database

import (
	"context"
	"time"

	"solis/internal/logger"

	"github.com/jackc/pgx/v5"
)

// ChangeChannel is the NOTIFY channel the collection triggers publish on.
const ChangeChannel = "solis_changes"

// Dispatcher receives collection change notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, collection string)
	// DispatchAll is called after (re)connecting, when notifications may have been missed.
	DispatchAll(ctx context.Context)
}

// Listener holds one dedicated LISTEN connection and forwards payloads.
type Listener struct {
	dsn     string
	log     *logger.Logger
	backoff time.Duration
}

func NewListener(dsn string, log *logger.Logger) *Listener {
	return &Listener{dsn: dsn, log: log.Named("listener"), backoff: time.Second}
}

// Run blocks until ctx is cancelled, reconnecting when the connection drops.
func (l *Listener) Run(ctx context.Context, d Dispatcher) {
	for {
		err := l.listen(ctx, d)
		if ctx.Err() != nil {
			return
		}
		l.log.Error().Err(err).Dur("retry_in", l.backoff).Msg("change listener disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context, d Dispatcher) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return err
	}
	l.log.Info().Str("channel", ChangeChannel).Msg("listening for collection changes")
	d.DispatchAll(ctx)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		d.Dispatch(ctx, n.Payload)
	}
}
