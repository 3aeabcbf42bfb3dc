package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/notihub/gateway/internal/domain/model"
)

// Sentinel errors returned by repository/cache/queue implementations.
var (
	ErrNotFound        = errors.New("notification: not found")
	ErrDuplicateRecord = errors.New("notification: duplicate record")
)

// NotificationRepository defines the contract for notification persistence.
type NotificationRepository interface {
	// Save persists a new notification row with status=pending.
	Save(ctx context.Context, n *model.Notification) (*model.Notification, error)

	// GetByID retrieves a notification by its unique ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)

	// UpdateStatus moves a notification's status column, e.g. to queued,
	// sent, or failed. Calling it twice with the same terminal status is a
	// no-op on the second call.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error
}

// NotificationCache defines the contract for a read-through caching layer
// in front of NotificationRepository.
type NotificationCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	Set(ctx context.Context, n *model.Notification, expiration time.Duration) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NotificationQueue defines the contract for the shared FIFO job queue and
// its companion dead-letter queue. Push appends raw JSON to the tail of the
// main queue; Pop removes from the head (nil, nil when empty); PushFailed
// appends raw JSON to the tail of the dead-letter queue.
type NotificationQueue interface {
	Push(ctx context.Context, job []byte) error
	Pop(ctx context.Context) ([]byte, error)
	PushFailed(ctx context.Context, job []byte) error
}
