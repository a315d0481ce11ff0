package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/clinic-queue/internal/queue"
)

// redisAllocator issues daily ticket numbers via atomic INCR on a
// dispensary-day key, so numbers stay monotonic across instances. Keys
// expire two days after creation; the date suffix already prevents reuse
// within a dispensary-day.
type redisAllocator struct {
	client *redis.Client
	prefix string
}

// NewRedisAllocator builds a Redis-backed daily ticket number allocator.
func NewRedisAllocator(r *Redis, prefix string) queue.NumberAllocator {
	if prefix == "" {
		prefix = "queue:seq"
	}
	return &redisAllocator{client: r.Client, prefix: prefix}
}

func (a *redisAllocator) Next(ctx context.Context, dispensaryID string, day time.Time) (int, error) {
	key := fmt.Sprintf("%s:%s", a.prefix, queue.SequenceKey(dispensaryID, day))
	pipe := a.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}
