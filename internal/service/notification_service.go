package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/validate"
	"github.com/rs/zerolog"
)

// SendRequest is the service-layer view of an ingestion request, decoupled
// from the HTTP transport's DTO.
type SendRequest struct {
	UserID        string
	Recipient     string
	RecipientType string
	Sender        string
	Channel       model.Channel
	TemplateID    string
	Payload       json.RawMessage
}

// NotificationService encapsulates the business logic for managing
// notifications: validation, persistence, and enqueueing.
type NotificationService struct {
	repo   repo.NotificationRepository
	queue  repo.NotificationQueue
	logger zerolog.Logger
}

func NewNotificationService(
	repo repo.NotificationRepository,
	queue repo.NotificationQueue,
	logger *zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		repo:   repo,
		queue:  queue,
		logger: logger.With().Str("layer", "service").Logger(),
	}
}

// Send implements spec.md §4.1's send(request) -> {id, status} operation:
// validate, persist at status=pending, enqueue, return. The DB insert
// happens-before the queue push; a push failure leaves the row at pending
// (deliberate at-most-once-enqueue acceptance - see spec.md §4.1 and §9).
func (s *NotificationService) Send(ctx context.Context, req SendRequest) (*model.Notification, error) {
	s.logger.Info().Str("channel", string(req.Channel)).Msg("validating new notification request")

	if err := validate.Payload(req.Channel, req.Payload); err != nil {
		return nil, err
	}
	if err := validate.RequiredFields(req.Channel, req.RecipientType, req.Sender); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, gwerrors.InvalidDataField("user_id must be a valid UUID")
	}

	var templateID *uuid.UUID
	if req.TemplateID != "" {
		id, err := uuid.Parse(req.TemplateID)
		if err != nil {
			return nil, gwerrors.InvalidDataField("template_id must be a valid UUID")
		}
		templateID = &id
	}

	notification := model.New(userID, req.Recipient, req.Channel, templateID)

	saved, err := s.repo.Save(ctx, notification)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save notification")
		return nil, gwerrors.DatabaseError(err)
	}
	s.logger.Info().Stringer("id", saved.ID).Msg("notification saved with status=pending")

	job := model.Job{
		NotificationID: saved.ID.String(),
		Recipient:      req.Recipient,
		RecipientType:  req.RecipientType,
		Sender:         req.Sender,
		Channel:        string(req.Channel),
		TemplateID:     req.TemplateID,
		Payload:        req.Payload,
		RetryCount:     0,
	}
	body, err := json.Marshal(job)
	if err != nil {
		s.logger.Error().Err(err).Stringer("id", saved.ID).Msg("failed to marshal job descriptor")
		return nil, gwerrors.DatabaseError(err)
	}

	if err := s.queue.Push(ctx, body); err != nil {
		s.logger.Error().Err(err).Stringer("id", saved.ID).
			Msg("CRITICAL: failed to push job to queue after saving; row left at pending")
		return nil, gwerrors.RedisQueuePush(err)
	}

	if err := s.repo.UpdateStatus(ctx, saved.ID, model.StatusQueued); err != nil {
		// The job is already on the wire; a failure to flip the status
		// column is logged, not surfaced, so the caller still gets its
		// queued acknowledgement.
		s.logger.Error().Err(err).Stringer("id", saved.ID).Msg("failed to mark notification as queued")
	} else {
		saved.Status = model.StatusQueued
	}

	s.logger.Info().Stringer("id", saved.ID).Msg("notification enqueued")
	return saved, nil
}

// GetByID retrieves a notification by its ID, going through whatever
// caching decorator wraps the repository.
func (s *NotificationService) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err != repo.ErrNotFound {
			s.logger.Error().Err(err).Stringer("id", id).Msg("failed to get notification by id")
		}
		return nil, err
	}
	return n, nil
}
