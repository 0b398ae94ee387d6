package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"beastfood/pkg/logger"
)

// Bus fans notification events out to every API instance.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Run blocks, calling fn for each received event, until ctx ends.
	Run(ctx context.Context, fn func(Event)) error
	Close() error
}

type RedisBus struct {
	Client  *redis.Client
	Channel string
	Log     *logger.Logger
}

func NewRedisBus(client *redis.Client, channel string, log *logger.Logger) *RedisBus {
	if channel == "" {
		channel = "beastfood:notifications"
	}
	return &RedisBus{Client: client, Channel: channel, Log: log.With("component", "redis_bus")}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.Client.Publish(ctx, b.Channel, raw).Err()
}

func (b *RedisBus) Run(ctx context.Context, fn func(Event)) error {
	sub := b.Client.Subscribe(ctx, b.Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				b.Log.Warn("bad notification payload", "error", err)
				continue
			}
			fn(ev)
		}
	}
}

func (b *RedisBus) Close() error { return nil }

// KafkaBus keys messages by user id; each instance reads with its own
// consumer group so every instance sees every event.
type KafkaBus struct {
	writer  *kafka.Writer
	brokers []string
	topic   string
	groupID string
	log     *logger.Logger
}

func NewKafkaBus(brokers []string, topic, groupID string, log *logger.Logger) *KafkaBus {
	return &KafkaBus{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		log:     log.With("component", "kafka_bus"),
	}
}

func (b *KafkaBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.UserID), Value: raw})
}

func (b *KafkaBus) Run(ctx context.Context, fn func(Event)) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.groupID,
		Topic:       b.topic,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			b.log.Warn("kafka read error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			b.log.Warn("bad notification payload", "offset", m.Offset, "error", err)
			continue
		}
		fn(ev)
	}
}

func (b *KafkaBus) Close() error { return b.writer.Close() }
