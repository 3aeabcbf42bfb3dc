package redis

import (
	"context"
	"errors"

	"github.com/notihub/gateway/internal/config"
	repo "github.com/notihub/gateway/internal/domain/repository"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ensure NotificationQueue implements the interface
var _ repo.NotificationQueue = (*NotificationQueue)(nil)

// NotificationQueue is the shared FIFO job queue spec.md §4.1/§4.2
// describes, backed by a Redis list: Push appends to the tail (RPUSH),
// Pop removes from the head (LPOP), matching a plain FIFO rather than the
// teacher's RabbitMQ broker. The dead-letter queue is the same mechanism
// under a derived key ("<key>_failed"), grounded on
// original_source's queue_worker.rs, which builds the same failed_key by
// string-appending "_failed" to the main queue key.
type NotificationQueue struct {
	redis     *goredis.Client
	key       string
	failedKey string
	logger    zerolog.Logger
}

// NewNotificationQueue creates a NotificationQueue bound to cfg.Queue.Key.
func NewNotificationQueue(cfg *config.Config, redis *goredis.Client, logger *zerolog.Logger) *NotificationQueue {
	return &NotificationQueue{
		redis:     redis,
		key:       cfg.Queue.Key,
		failedKey: cfg.Queue.Key + "_failed",
		logger:    logger.With().Str("layer", "redis_queue").Logger(),
	}
}

// Push appends a raw job descriptor to the tail of the main queue.
func (q *NotificationQueue) Push(ctx context.Context, job []byte) error {
	if err := q.redis.RPush(ctx, q.key, job).Err(); err != nil {
		q.logger.Error().Err(err).Str("key", q.key).Msg("failed to push job to queue")
		return err
	}
	return nil
}

// Pop removes and returns the raw job descriptor at the head of the main
// queue, or (nil, nil) if the queue is currently empty.
func (q *NotificationQueue) Pop(ctx context.Context) ([]byte, error) {
	val, err := q.redis.LPop(ctx, q.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		q.logger.Error().Err(err).Str("key", q.key).Msg("failed to pop job from queue")
		return nil, err
	}
	return val, nil
}

// PushFailed appends a raw job descriptor to the tail of the dead-letter
// queue.
func (q *NotificationQueue) PushFailed(ctx context.Context, job []byte) error {
	if err := q.redis.RPush(ctx, q.failedKey, job).Err(); err != nil {
		q.logger.Error().Err(err).Str("key", q.failedKey).Msg("failed to push job to dead-letter queue")
		return err
	}
	return nil
}
