package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/chatmate/internal/core/events"
)

// RedisClient is the slice of *redis.Client the publisher needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher fans events out on a redis pub/sub channel so workers in
// other processes can deliver them.
type RedisPublisher struct {
	client  RedisClient
	channel string
	logger  *slog.Logger
}

func NewRedisPublisher(client RedisClient, channel string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisPublisher) Register(bus *events.EventBus) {
	bus.SubscribeAll(p.HandleEvent)
}

func (p *RedisPublisher) HandleEvent(ctx context.Context, event events.Event) error {
	body, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, body).Result()
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	p.logger.Debug("event published to redis",
		"event_id", event.EventID(),
		"channel", p.channel,
		"receivers", receivers)
	return nil
}

// Subscribe feeds every message on channel to handle until ctx is done.
// Handler errors are logged and do not stop the loop.
func Subscribe(ctx context.Context, client *redis.Client, channel string, handle func(ctx context.Context, payload []byte) error, logger *slog.Logger) error {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	logger.Info("subscribed to event channel", "channel", channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := handle(ctx, []byte(msg.Payload)); err != nil {
				logger.Error("failed to handle event message", "channel", channel, "error", err)
			}
		}
	}
}
