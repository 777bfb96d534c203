package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lifeconnect/internal/platform/kafka"
)

// redisPublisher is the subset of go-redis used by RedisSink.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink PUBLISHes each event as JSON on <prefix>:<entity type>.
type RedisSink struct {
	client redisPublisher
	prefix string
}

func NewRedisSink(client redisPublisher, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.client.Publish(ctx, s.prefix+":"+event.EntityType, payload).Err()
}

type kafkaProducer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink produces directly to Kafka. It is used when there is no Postgres
// outbox to relay from.
type KafkaSink struct {
	producer kafkaProducer
}

func NewKafkaSink(producer kafkaProducer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	msg, err := ToMessage(event)
	if err != nil {
		return err
	}
	return s.producer.Publish(ctx, msg)
}

// ToMessage encodes an event as a Kafka record keyed by its entity.
func ToMessage(event Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   event.Key(),
		Value: payload,
		Headers: map[string]string{
			"event_id":   event.ID.String(),
			"event_name": string(event.Name),
		},
	}, nil
}
