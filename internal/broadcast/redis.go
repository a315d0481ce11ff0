package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// RedisPublisher mirrors queue traffic onto Redis pub/sub channels so
// other instances and external consumers can relay it. Channel names
// are "<prefix>:dispensary:<id>", "<prefix>:doctor:<id>" and
// "<prefix>:patient:<id>".
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisPublisher constructs a Redis-backed gateway.
func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	if prefix == "" {
		prefix = "queue"
	}
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

// PublishQueue implements Gateway over Redis pub/sub.
func (p *RedisPublisher) PublishQueue(ctx context.Context, scopeKind, scopeID string, entries []domain.QueueEntry) error {
	topic := scopeKind + ":" + scopeID
	return p.publish(ctx, topic, Message{
		Type:      "queue_snapshot",
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Payload:   entries,
	})
}

// NotifyPatient implements Gateway over Redis pub/sub.
func (p *RedisPublisher) NotifyPatient(ctx context.Context, patientID string, entry domain.QueueEntry) error {
	topic := "patient:" + patientID
	return p.publish(ctx, topic, Message{
		Type:      "almost_up",
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Payload:   entry,
	})
}

func (p *RedisPublisher) publish(ctx context.Context, topic string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	channel := p.prefix + ":" + topic
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Warn("redis publish failed", zap.String("channel", channel), zap.Error(err))
		return err
	}
	return nil
}
