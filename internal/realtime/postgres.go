package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

// PGPublisher announces changes with pg_notify so every instance listening
// on the channel sees them.
type PGPublisher struct {
	db      *gorm.DB
	channel string
}

func NewPGPublisher(db *gorm.DB, channel string) *PGPublisher {
	return &PGPublisher{db: db, channel: channel}
}

func (p *PGPublisher) Publish(ctx context.Context, e Event) error {
	if err := p.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", p.channel, e.Marshal()).Error; err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// PGRelay holds a dedicated LISTEN connection and forwards notifications to
// the local hub.
type PGRelay struct {
	url       string
	channel   string
	hub       *Hub
	reconnect time.Duration
}

func NewPGRelay(url, channel string, hub *Hub) *PGRelay {
	return &PGRelay{url: url, channel: channel, hub: hub, reconnect: 5 * time.Second}
}

// Run blocks until ctx is cancelled. A dropped connection is re-established
// after a fixed delay; the reconnect itself is announced as a change since
// notifications may have been missed meanwhile.
func (r *PGRelay) Run(ctx context.Context) {
	first := true
	for {
		err := r.listen(ctx, !first)
		if ctx.Err() != nil {
			return
		}
		first = false
		slog.Error("postgres change relay disconnected", "channel", r.channel, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.reconnect):
		}
	}
}

func (r *PGRelay) listen(ctx context.Context, resync bool) error {
	conn, err := pgx.Connect(ctx, r.url)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{r.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	slog.Info("postgres change relay listening", "channel", r.channel)

	if resync {
		r.hub.Broadcast(Event{Op: OpUpdate, At: time.Now().UTC()})
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		r.hub.Broadcast(ParseEvent(n.Payload))
	}
}
