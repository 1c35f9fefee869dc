package live

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisHub shares signals between API instances over Redis pub/sub.
type RedisHub struct {
	client *redis.Client
	prefix string
}

// NewRedisHub builds a hub publishing on prefix+topic.
func NewRedisHub(client *redis.Client, prefix string) *RedisHub {
	if prefix == "" {
		prefix = "gymdesk:live:"
	}
	return &RedisHub{client: client, prefix: prefix}
}

// Channel is the Redis channel used for topic.
func (h *RedisHub) Channel(topic string) string { return h.prefix + topic }

// Notify publishes a change signal. Failures are logged; writers never fail
// because a live view could not be told.
func (h *RedisHub) Notify(ctx context.Context, topic string) {
	if err := h.client.Publish(ctx, h.Channel(topic), "changed").Err(); err != nil {
		log.Printf("live notify %s failed: %v", topic, err)
	}
}

// Subscribe opens a Redis subscription and waits for its confirmation.
func (h *RedisHub) Subscribe(ctx context.Context, topic string) (<-chan struct{}, func(), error) {
	ps := h.client.Subscribe(ctx, h.Channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		for range msgs {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}
