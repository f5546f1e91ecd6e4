// Package realtime broadcasts ticket collection changes between service
// instances over a Redis pub/sub channel. Receivers do not diff: any change
// signal makes them reload the whole collection.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Change is the message published for every committed mutation.
type Change struct {
	Origin   string    `json:"origin"`
	Type     string    `json:"type"`
	TicketID string    `json:"ticket_id"`
	At       time.Time `json:"at"`
}

// ChangeSubscribed is delivered locally each time a subscription is
// established, so receivers can catch up on changes missed while offline.
const ChangeSubscribed = "subscribed"

// ChangeHandler reacts to a change made by another instance.
type ChangeHandler func(ctx context.Context, change Change) error

// Notifier publishes local changes and delivers remote ones.
type Notifier interface {
	Publish(ctx context.Context, change Change) error
	Run(ctx context.Context, handler ChangeHandler) error
	Origin() string
}

// RedisNotifier implements Notifier with go-redis pub/sub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisNotifier builds a notifier; origin tags messages so an instance
// ignores its own broadcasts.
func NewRedisNotifier(client *redis.Client, channel, origin string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, origin: origin, logger: logger}
}

// Origin returns the instance tag.
func (n *RedisNotifier) Origin() string {
	return n.origin
}

// Publish sends a change to the channel.
func (n *RedisNotifier) Publish(ctx context.Context, change Change) error {
	if change.Origin == "" {
		change.Origin = n.origin
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

// Run subscribes and blocks until ctx is cancelled or the subscription fails.
// Once subscribed, handler first receives a ChangeSubscribed change. Handler
// errors are logged and do not stop the subscription.
func (n *RedisNotifier) Run(ctx context.Context, handler ChangeHandler) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}
	n.logger.Info("realtime subscription started", zap.String("channel", n.channel), zap.String("origin", n.origin))
	if err := handler(ctx, Change{Origin: n.origin, Type: ChangeSubscribed, At: time.Now().UTC()}); err != nil {
		n.logger.Warn("realtime catch-up failed", zap.Error(err))
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := dispatch(ctx, n.origin, []byte(msg.Payload), handler); err != nil {
				n.logger.Warn("realtime change not applied", zap.Error(err))
			}
		}
	}
}

// dispatch decodes a payload and invokes handler unless it came from origin.
func dispatch(ctx context.Context, origin string, payload []byte, handler ChangeHandler) error {
	var change Change
	if err := json.Unmarshal(payload, &change); err != nil {
		return fmt.Errorf("decode change: %w", err)
	}
	if change.Origin == origin {
		return nil
	}
	return handler(ctx, change)
}

// NoopNotifier is used when no broker is configured.
type NoopNotifier struct{}

// Publish discards the change.
func (NoopNotifier) Publish(context.Context, Change) error { return nil }

// Run blocks until ctx is cancelled.
func (NoopNotifier) Run(ctx context.Context, _ ChangeHandler) error {
	<-ctx.Done()
	return nil
}

// Origin returns an empty tag.
func (NoopNotifier) Origin() string { return "" }
