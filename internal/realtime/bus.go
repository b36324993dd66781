package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Subscriber streams change events for a set of channels until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan Event, error)
}

// RedisBus fans change events out over redis pub/sub.
type RedisBus struct {
	rdb *redis.Client
	log zerolog.Logger
}

var (
	_ Publisher  = (*RedisBus)(nil)
	_ Subscriber = (*RedisBus)(nil)
)

// NewRedisBus builds a bus on an existing redis client.
func NewRedisBus(rdb *redis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: log.With().Str("component", "realtime").Logger()}
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	payload, err := evt.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, evt.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Channel(), err)
	}
	return nil
}

// Subscribe confirms the subscription before returning so no event published
// after the call is missed. The channel closes when ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, channels ...string) (<-chan Event, error) {
	pubsub := b.rdb.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				evt, err := Decode([]byte(msg.Payload))
				if err != nil {
					b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
