package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notihub/gateway/internal/domain/model"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AuditExchange is the fanout exchange every terminal status transition is
// published to, per spec.md §9's note that a reconciliation mechanism is
// recommended but out of this core's scope: this gives any number of
// downstream consumers (a reconciler among them) a best-effort feed of
// outcomes without the core depending on one existing. An event whose
// publish fails is logged and dropped, not retried.
const AuditExchange = "notification.audit"

// AuditEvent is the wire shape published to AuditExchange.
type AuditEvent struct {
	NotificationID uuid.UUID    `json:"notification_id"`
	Channel        string       `json:"channel"`
	Status         model.Status `json:"status"`
	OccurredAt     time.Time    `json:"occurred_at"`
}

// AuditPublisher publishes best-effort outbox events. A nil AuditPublisher
// (built when RABBITMQ_URL is unset) makes Publish a no-op rather than
// panicking, since the audit trail is explicitly not load-bearing for
// delivery.
type AuditPublisher struct {
	ch     *amqp.Channel
	logger zerolog.Logger
}

// NewAuditPublisher declares AuditExchange on a channel taken from the
// shared connection and returns a publisher bound to it. conn may be nil
// when RABBITMQ_URL was not configured, in which case Publish on the
// returned *AuditPublisher degrades to a no-op.
func NewAuditPublisher(conn *amqp.Connection, logger *zerolog.Logger) (*AuditPublisher, error) {
	log := logger.With().Str("component", "audit_publisher").Logger()

	if conn == nil {
		log.Warn().Msg("rabbitmq connection unavailable, audit publishing disabled")
		return &AuditPublisher{logger: log}, nil
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: failed to open audit channel: %w", err)
	}

	if err := ch.ExchangeDeclare(AuditExchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq: failed to declare audit exchange: %w", err)
	}

	return &AuditPublisher{ch: ch, logger: log}, nil
}

// Publish emits an audit event for a notification's terminal (or
// transitional) status change. A publish failure is logged and swallowed:
// the audit trail is best-effort and must never affect delivery outcome.
func (p *AuditPublisher) Publish(ctx context.Context, event AuditEvent) {
	if p.ch == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Stringer("id", event.NotificationID).Msg("failed to marshal audit event")
		return
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
	}

	if err := p.ch.PublishWithContext(ctx, AuditExchange, "", false, false, msg); err != nil {
		p.logger.Error().Err(err).Stringer("id", event.NotificationID).Msg("failed to publish audit event")
	}
}

// Close releases the underlying channel, if one was opened.
func (p *AuditPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
