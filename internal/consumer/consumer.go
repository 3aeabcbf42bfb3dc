// Package consumer implements the Queue Consumer spec.md §4.2 describes:
// a single loop popping raw job descriptors off the shared Redis queue and
// routing each to its channel's worker actor.
//
// Grounded on original_source's QueueWorker::process_notification: an
// outer supervisor loop that restarts the inner poll loop on any error
// (including a clean return, which the original treats as a crash to
// recover from, never as "done" - resolving spec.md §9's ambiguity about
// that exact behavior), and an inner loop that pops one job, parses it,
// and routes it by channel.
package consumer

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/notihub/gateway/internal/config"
	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/workers"
	"github.com/rs/zerolog"
)

// Consumer polls the shared queue and routes jobs through a Dispatcher.
type Consumer struct {
	queue       repo.NotificationQueue
	dispatcher  *workers.Dispatcher
	idleBackoff time.Duration
	running     atomic.Bool
	logger      zerolog.Logger
}

// New creates a Consumer. cfg.Worker.IdleBackoff bounds how long the inner
// loop sleeps after observing an empty queue before polling again.
func New(cfg *config.Config, queue repo.NotificationQueue, dispatcher *workers.Dispatcher, logger *zerolog.Logger) *Consumer {
	return &Consumer{
		queue:       queue,
		dispatcher:  dispatcher,
		idleBackoff: cfg.Worker.IdleBackoff,
		logger:      logger.With().Str("component", "consumer").Logger(),
	}
}

// Run is the outer supervisor: it re-enters the poll loop whenever it
// returns, for any reason, until ctx is cancelled. A clean return from
// poll is treated the same as an error return - both are anomalies to
// recover from, since the only intended way out of this function is
// context cancellation.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info().Msg("consumer started")
	c.running.Store(true)
	defer c.running.Store(false)

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("consumer stopping")
			return
		}

		if err := c.poll(ctx); err != nil {
			c.logger.Error().Err(err).Msg("poll loop exited with an error, restarting")
		} else {
			c.logger.Warn().Msg("poll loop returned cleanly, restarting anyway")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.idleBackoff):
		}
	}
}

// poll is the inner loop: pop one job, route it, repeat. A pop error
// returns immediately so Run's supervisor can apply its backoff before
// retrying; an empty queue sleeps idleBackoff before the next pop.
func (c *Consumer) poll(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		rawJob, err := c.queue.Pop(ctx)
		if err != nil {
			return gwerrors.RedisQueuePop(err)
		}

		if rawJob == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.idleBackoff):
			}
			continue
		}

		c.routeOne(ctx, rawJob)
	}
}

// Running reports whether Run's outer supervisor loop is active (set for
// the whole of Run, including its backoff between polls), for the worker
// status endpoint (spec.md §6).
func (c *Consumer) Running() bool {
	return c.running.Load()
}

// envelope is the minimal shape needed to route a job; its notification_id
// is used only for logging. When the envelope cannot be decoded, routeOne
// dead-letters the raw bytes and does not update the notification's status.
type envelope struct {
	NotificationID string `json:"notification_id"`
	Channel        string `json:"channel"`
}

func (c *Consumer) routeOne(ctx context.Context, rawJob []byte) {
	var env envelope
	if err := json.Unmarshal(rawJob, &env); err != nil {
		c.logger.Error().Err(err).Msg("failed to parse job envelope, dead-lettering")
		if pushErr := c.queue.PushFailed(ctx, rawJob); pushErr != nil {
			c.logger.Error().Err(pushErr).Msg("cannot push corrupted job to dead-letter queue")
		}
		return
	}

	log := c.logger.With().Str("notification_id", env.NotificationID).Str("channel", env.Channel).Logger()

	if err := c.dispatcher.Route(ctx, env.Channel, rawJob); err != nil {
		log.Error().Err(err).Msg("failed to route job")
	}
}
