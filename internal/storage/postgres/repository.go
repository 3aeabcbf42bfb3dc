package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Ensure NotificationRepository implements the interface
var _ repo.NotificationRepository = (*NotificationRepository)(nil)

// NotificationRepository implements the domain.repository.NotificationRepository
// interface using PostgreSQL as a backend. The teacher's retrieved copy
// depended on a sqlc-generated db subpackage that isn't present here, so
// queries are hand-written against pgxpool directly; the pgx/pgerrcode/
// pgtype idioms themselves are unchanged from the teacher's approach.
type NotificationRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewNotificationRepository creates a new instance of the NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *NotificationRepository {
	return &NotificationRepository{
		pool:   pool,
		logger: logger.With().Str("layer", "postgres_repository").Logger(),
	}
}

const insertNotificationSQL = `
INSERT INTO notifications (id, user_id, recipient, channel, template_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Save persists a new notification row at the status it was constructed
// with (spec.md §4.1: always pending at this point).
func (r *NotificationRepository) Save(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	var templateID pgtype.UUID
	if n.TemplateID != nil {
		templateID = pgtype.UUID{Bytes: *n.TemplateID, Valid: true}
	}

	_, err := r.pool.Exec(ctx, insertNotificationSQL,
		n.ID, n.UserID, n.Recipient, string(n.Channel), templateID, string(n.Status), n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, repo.ErrDuplicateRecord
		}
		r.logger.Err(err).Msg("cannot insert notification")
		return nil, fmt.Errorf("postgres: insert notification failed: %w", err)
	}

	return n, nil
}

const selectNotificationByIDSQL = `
SELECT id, user_id, recipient, channel, template_id, status, created_at, updated_at
FROM notifications
WHERE id = $1
`

// GetByID retrieves a notification by its unique ID.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	row := r.pool.QueryRow(ctx, selectNotificationByIDSQL, id)

	var (
		n          model.Notification
		channel    string
		status     string
		templateID pgtype.UUID
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Recipient, &channel, &templateID, &status, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().Stringer("id", id).Msg("notification not found by id")
			return nil, repo.ErrNotFound
		}
		r.logger.Err(err).Str("method", "GetByID").Msg("cannot get notification")
		return nil, fmt.Errorf("postgres: select notification failed: %w", err)
	}

	n.Channel = model.Channel(channel)
	n.Status = model.Status(status)
	if templateID.Valid {
		id := uuid.UUID(templateID.Bytes)
		n.TemplateID = &id
	}

	return &n, nil
}

const updateNotificationStatusSQL = `
UPDATE notifications SET status = $2, updated_at = now() WHERE id = $1
`

// UpdateStatus moves a notification's status column.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	tag, err := r.pool.Exec(ctx, updateNotificationStatusSQL, id, string(status))
	if err != nil {
		r.logger.Err(err).Stringer("id", id).Msg("cannot update notification status")
		return fmt.Errorf("postgres: update notification status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Stringer("id", id).Msg("tried to update non-existent notification")
		return repo.ErrNotFound
	}
	return nil
}
