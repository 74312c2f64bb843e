package events

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "guidance:appointments:"

// RedisBroker брокер поверх Redis Pub/Sub, общий для нескольких экземпляров портала
type RedisBroker struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// RedisConfig параметры подключения к Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisBroker создаёт подключение и проверяет его через Ping
func NewRedisBroker(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisBroker, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("Redis connected", zap.String("addr", cfg.Addr))

	return &RedisBroker{rdb: rdb, logger: logger}, nil
}

// Publish публикует событие во все его топики
func (b *RedisBroker) Publish(ctx context.Context, ev AppointmentChanged) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	for _, topic := range ev.Topics() {
		if err := b.rdb.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}

	return nil
}

// Subscribe подписывается на канал топика
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, channelPrefix+topic)

	// Ждём подтверждения подписки, чтобы не потерять первые события
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	out := make(chan AppointmentChanged, subscriptionBuffer)
	subCtx, cancel := context.WithCancel(ctx)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer close(out)

		messages := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var ev AppointmentChanged
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("Skipping malformed event",
						zap.String("channel", msg.Channel),
						zap.Error(err),
					)
					continue
				}

				select {
				case out <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return newSubscription(out, func() {
		cancel()
		if err := pubsub.Close(); err != nil {
			b.logger.Warn("Failed to close redis subscription",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
		<-finished
	}), nil
}

func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
