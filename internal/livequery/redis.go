package livequery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"zotion/internal/domain/models"
)

const changesChannel = "zotion:document-changes"

// RedisBroker carries changes over Redis Pub/Sub so every server instance
// refreshes its own subscribers.
type RedisBroker struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisBroker connects to redisURL and checks the connection.
func NewRedisBroker(redisURL string, logger *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisBroker{
		client:  client,
		channel: changesChannel,
		logger:  logger,
	}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, change models.DocumentChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning,
// so changes published afterwards are not missed.
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan models.DocumentChange, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan models.DocumentChange, 64)
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
				var change models.DocumentChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					b.logger.Warn("dropping malformed document change", "error", err)
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Ping checks if Redis is reachable
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
