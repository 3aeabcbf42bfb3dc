package rabbitmq

import (
	"fmt"

	"github.com/notihub/gateway/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// NewConnection creates and returns a raw amqp.Connection, shared across
// the application for both the audit publisher and its own channel
// management. RabbitMQ is optional in this core (spec.md §9's audit trail
// is best-effort): when RABBITMQ_URL is unset, NewConnection returns
// (nil, nil) rather than failing process startup.
func NewConnection(cfg *config.Config, logger *zerolog.Logger) (*amqp.Connection, error) {
	if cfg.RabbitMQ.DSN == "" {
		logger.Warn().Msg("RABBITMQ_URL not set, audit publishing is disabled")
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: failed to connect: %w", err)
	}
	return conn, nil
}
