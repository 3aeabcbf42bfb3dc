// Package senders implements the channel-specific Sender capability spec.md
// §4.3/§9 describes: each Sender owns one outbound protocol and is wrapped
// by a generic channel worker actor (internal/workers) that adds retry/DLQ
// policy around it.
package senders

import (
	"context"

	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
)

// Sender is the capability every channel worker wraps. Implementations are
// responsible for updating the notification's status to sent on success;
// the caller (the worker actor) is responsible for everything that happens
// on error (retry accounting, dead-lettering, marking failed).
type Sender interface {
	Send(ctx context.Context, job *model.Job, notifications repo.NotificationRepository) error
}
