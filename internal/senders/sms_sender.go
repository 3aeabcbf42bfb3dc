package senders

import (
	"context"

	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
)

// SMSSender exists to give channel=sms a routable entry in the dispatcher
// map. Spec.md's channel enum includes sms but no component design section
// backs it; every job that reaches it is dead-lettered immediately rather
// than silently dropped or retried forever.
type SMSSender struct{}

func NewSMSSender() *SMSSender { return &SMSSender{} }

func (s *SMSSender) Send(ctx context.Context, job *model.Job, notifications repo.NotificationRepository) error {
	return gwerrors.ChannelUnsupported("sms")
}
