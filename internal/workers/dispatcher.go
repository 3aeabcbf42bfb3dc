package workers

import (
	"context"

	"github.com/notihub/gateway/internal/config"
	"github.com/notihub/gateway/internal/domain/model"

	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/senders"
	"github.com/notihub/gateway/internal/storage/rabbitmq"
	"github.com/rs/zerolog"
)

// Dispatcher is the channel-name -> Actor routing map, grounded on
// original_source's QueueWorker, which held a
// HashMap<String, Recipient<NotificationMessage>> and did_send into it.
// Dispatch mirrors do_send's non-blocking guarantee: a full mailbox
// dead-letters the job rather than blocking the caller.
type Dispatcher struct {
	actors map[string]*Actor
	queue  repo.NotificationQueue
	logger zerolog.Logger
}

// NewDispatcher builds the fixed push/email/sms routing map and starts
// nothing; call Run to start every actor's draining goroutine. The channel
// set is closed (spec.md's Channel enum), so the map is built from three
// concrete senders rather than a caller-supplied table.
func NewDispatcher(
	cfg *config.Config,
	push *senders.PushSender,
	email *senders.EmailSender,
	sms *senders.SMSSender,
	notifications repo.NotificationRepository,
	queue repo.NotificationQueue,
	audit *rabbitmq.AuditPublisher,
	logger *zerolog.Logger,
) *Dispatcher {
	senderByChannel := map[string]senders.Sender{
		string(model.ChannelPush):  push,
		string(model.ChannelEmail): email,
		string(model.ChannelSMS):   sms,
	}

	actors := make(map[string]*Actor, len(senderByChannel))
	for channel, sender := range senderByChannel {
		actors[channel] = NewActor(channel, sender, notifications, queue, audit, cfg.Worker.MailboxDepth, logger)
	}
	return &Dispatcher{
		actors: actors,
		queue:  queue,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Run starts every registered actor's draining goroutine and blocks until
// ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for _, actor := range d.actors {
		go actor.Run(ctx)
	}
	<-ctx.Done()
}

// Route hands a raw job descriptor to the actor registered for channel. A
// job for an unknown channel is dead-lettered immediately, per
// original_source's "No worker found for channel" branch, which treats it
// as a NoneValue error rather than dropping the message silently.
func (d *Dispatcher) Route(ctx context.Context, channel string, rawJob []byte) error {
	actor, ok := d.actors[channel]
	if !ok {
		d.logger.Error().Str("channel", channel).Msg("no actor registered for channel, dead-lettering")
		if err := d.queue.PushFailed(ctx, rawJob); err != nil {
			d.logger.Error().Err(err).Msg("cannot push unroutable job to dead-letter queue")
		}
		return gwerrors.ChannelUnsupported(channel)
	}
	actor.Dispatch(ctx, rawJob)
	return nil
}
