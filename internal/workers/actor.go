// Package workers implements the Channel Worker Actor spec.md §4.3
// describes: one actor per channel, each owning a buffered mailbox and a
// single draining goroutine, wrapping a senders.Sender with the shared
// retry/dead-letter policy.
//
// Grounded on original_source's NotificationWorkerActor (an Actix actor
// with a `Handler<NotificationMessage>` that spawns one async task per
// message). Go has no actor runtime in the teacher's stack, so the actor
// is a goroutine draining a channel - the idiomatic Go shape for the same
// mailbox-plus-single-consumer pattern.
package workers

import (
	"context"
	"encoding/json"
	"time"

	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/senders"
	"github.com/notihub/gateway/internal/storage/rabbitmq"
	"github.com/rs/zerolog"
)

// Actor is one channel's mailbox plus its draining goroutine. Jobs routed
// to the wrong actor never happen; routing is the Dispatcher's job.
type Actor struct {
	channel string
	sender  senders.Sender
	repo    repo.NotificationRepository
	queue   repo.NotificationQueue
	audit   *rabbitmq.AuditPublisher
	mailbox chan []byte
	logger  zerolog.Logger
}

// NewActor creates an Actor with a mailbox of the given depth. depth
// bounds how many jobs for this channel can be in flight between the
// consumer's Redis pop and the actor's own send attempt; once the mailbox
// is full, Dispatch stops accepting jobs for this channel and dead-letters
// them instead of blocking the shared consumer loop (spec.md §5).
func NewActor(channel string, sender senders.Sender, notifications repo.NotificationRepository, queue repo.NotificationQueue, audit *rabbitmq.AuditPublisher, depth int, logger *zerolog.Logger) *Actor {
	return &Actor{
		channel: channel,
		sender:  sender,
		repo:    notifications,
		queue:   queue,
		audit:   audit,
		mailbox: make(chan []byte, depth),
		logger:  logger.With().Str("component", "channel_worker_actor").Str("channel", channel).Logger(),
	}
}

// Dispatch enqueues a raw job descriptor onto this actor's mailbox without
// ever blocking the caller. original_source's actor used Actix's do_send -
// a genuinely non-blocking fire-and-forget send against an unbounded
// mailbox - so a bounded Go channel needs its own overflow policy to keep
// that same guarantee: a full mailbox dead-letters the job immediately
// instead of stalling the consumer's single poll goroutine (spec.md §4.2
// step 4, §5).
func (a *Actor) Dispatch(ctx context.Context, rawJob []byte) {
	select {
	case a.mailbox <- rawJob:
		return
	default:
	}

	a.logger.Warn().Msg("mailbox full, dead-lettering job instead of blocking the consumer")

	var job model.Job
	if err := json.Unmarshal(rawJob, &job); err != nil {
		a.logger.Error().Err(err).Msg("overflow job is also undecodable, dead-lettering raw bytes")
		if pushErr := a.queue.PushFailed(ctx, rawJob); pushErr != nil {
			a.logger.Error().Err(pushErr).Msg("cannot push overflow job to dead-letter queue")
		}
		return
	}

	log := a.logger.With().Str("notification_id", job.NotificationID).Logger()
	a.deadLetter(ctx, &job, log)
}

// Run drains the mailbox until ctx is cancelled. It is meant to be started
// once per actor, as its own goroutine, for the lifetime of the worker
// process.
func (a *Actor) Run(ctx context.Context) {
	a.logger.Info().Msg("channel worker actor started")
	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("channel worker actor stopping")
			return
		case rawJob := <-a.mailbox:
			a.handle(ctx, rawJob)
		}
	}
}

// handle sends one job and, on failure, applies the retry/dead-letter
// policy: a terminal (non-retryable) error dead-letters the job and marks
// the notification failed at once; any other error re-enqueues it with an
// incremented retry_count up to model.MaxRetries attempts, then
// dead-letters it and marks it failed. As in original_source's
// NotificationWorkerActor::handle, the retry_count increment happens
// before the re-enqueue decision.
func (a *Actor) handle(ctx context.Context, rawJob []byte) {
	var job model.Job
	if err := json.Unmarshal(rawJob, &job); err != nil {
		a.logger.Error().Err(err).Msg("mailbox received an undecodable job, dead-lettering")
		if pushErr := a.queue.PushFailed(ctx, rawJob); pushErr != nil {
			a.logger.Error().Err(pushErr).Msg("cannot push undecodable job to dead-letter queue")
		}
		return
	}

	log := a.logger.With().Str("notification_id", job.NotificationID).Logger()

	err := a.sender.Send(ctx, &job, a.repo)
	if err == nil {
		a.publishAudit(ctx, &job, model.StatusSent)
		return
	}

	log.Error().Err(err).Msg("send failed")

	if gwErr, ok := err.(*gwerrors.Error); ok && !gwErr.Retryable() {
		log.Warn().Msg("error is terminal, dead-lettering without retry")
		a.deadLetter(ctx, &job, log)
		return
	}

	job.RetryCount++
	log.Warn().Int("retry_count", job.RetryCount).Msg("retrying job")

	if job.RetryCount < model.MaxRetries {
		body, marshalErr := json.Marshal(job)
		if marshalErr != nil {
			log.Error().Err(marshalErr).Msg("cannot re-marshal job for retry, dead-lettering")
			a.deadLetter(ctx, &job, log)
			return
		}
		if pushErr := a.queue.Push(ctx, body); pushErr != nil {
			log.Error().Err(pushErr).Msg("cannot push job back to queue for retry")
		}
		return
	}

	log.Error().Msg("job exceeded max retries, dead-lettering")
	a.deadLetter(ctx, &job, log)
}

func (a *Actor) deadLetter(ctx context.Context, job *model.Job, log zerolog.Logger) {
	body, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Msg("cannot marshal job for dead-letter queue")
		return
	}
	if err := a.queue.PushFailed(ctx, body); err != nil {
		log.Error().Err(err).Msg("cannot push job to dead-letter queue")
	}

	notificationID, err := job.NotificationUUID()
	if err != nil {
		log.Error().Err(err).Msg("cannot parse notification_id to mark failed")
		return
	}
	if err := a.repo.UpdateStatus(ctx, notificationID, model.StatusFailed); err != nil {
		log.Error().Err(err).Msg("failed to mark notification failed")
	}
	a.publishAudit(ctx, job, model.StatusFailed)
}

// publishAudit emits a best-effort outbox event for a terminal status
// transition. A malformed notification_id is logged, not retried: the
// audit trail is supplementary and must never block delivery.
func (a *Actor) publishAudit(ctx context.Context, job *model.Job, status model.Status) {
	notificationID, err := job.NotificationUUID()
	if err != nil {
		a.logger.Error().Err(err).Msg("cannot parse notification_id for audit event")
		return
	}
	a.audit.Publish(ctx, rabbitmq.AuditEvent{
		NotificationID: notificationID,
		Channel:        a.channel,
		Status:         status,
		OccurredAt:     time.Now().UTC(),
	})
}
