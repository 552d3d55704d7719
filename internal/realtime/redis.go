package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/rueidis"
)

// NewRedisClient opens the rueidis client used by the Redis feed.
func NewRedisClient(addr, password string) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
		SelectDB:    0,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

type RedisPublisher struct {
	client  rueidis.Client
	channel string
}

func NewRedisPublisher(client rueidis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	cmd := p.client.B().Publish().Channel(p.channel).Message(e.Marshal()).Build()
	if err := p.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// RedisRelay subscribes to the channel and forwards messages to the hub.
type RedisRelay struct {
	client    rueidis.Client
	channel   string
	hub       *Hub
	reconnect time.Duration
}

func NewRedisRelay(client rueidis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, hub: hub, reconnect: 5 * time.Second}
}

// Run blocks until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) {
	for {
		sub := r.client.B().Subscribe().Channel(r.channel).Build()
		err := r.client.Receive(ctx, sub, func(msg rueidis.PubSubMessage) {
			r.hub.Broadcast(ParseEvent(msg.Message))
		})
		if ctx.Err() != nil {
			return
		}
		slog.Error("redis change relay disconnected", "channel", r.channel, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.reconnect):
		}
		r.hub.Broadcast(Event{Op: OpUpdate, At: time.Now().UTC()})
	}
}
