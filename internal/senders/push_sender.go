package senders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/notihub/gateway/internal/config"
	"github.com/notihub/gateway/internal/credentials"
	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/validate"
	"github.com/rs/zerolog"
)

// PushSender delivers push notifications through the cloud messaging HTTP
// v1 API, grounded on original_source's PushWorker. The bearer token comes
// from a shared credentials.Cache rather than from a per-send fetch.
type PushSender struct {
	client *http.Client
	url    string
	cache  *credentials.Cache
	logger zerolog.Logger
}

// NewPushSender builds a PushSender targeting cfg.Push.ProjectID's
// messages:send endpoint.
func NewPushSender(cfg *config.Config, cache *credentials.Cache, logger *zerolog.Logger) *PushSender {
	return &PushSender{
		client: &http.Client{},
		url:    fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", cfg.Push.ProjectID),
		cache:  cache,
		logger: logger.With().Str("component", "push_sender").Logger(),
	}
}

func (s *PushSender) tryRequest(ctx context.Context, token string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return s.client.Do(req)
}

// Send implements Sender for channel=push. It retries exactly once on a 401
// (stale cached token), refreshing the credential cache before the retry,
// per spec.md §4.4/§9's resolution of the 401-handling ambiguity.
func (s *PushSender) Send(ctx context.Context, job *model.Job, notifications repo.NotificationRepository) error {
	var payload validate.PushPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return gwerrors.JSONParse(err)
	}
	if job.RecipientType == "" {
		return gwerrors.NoneValue("push job is missing recipient_type")
	}

	message := map[string]any{
		"message": map[string]any{
			job.RecipientType: job.Recipient,
			"notification": map[string]any{
				"title": payload.Title,
				"body":  payload.Body,
			},
		},
	}
	body, err := json.Marshal(message)
	if err != nil {
		return gwerrors.JSONParse(err)
	}

	notificationID, err := uuid.Parse(job.NotificationID)
	if err != nil {
		return gwerrors.InvalidDataField(fmt.Sprintf("notification_id is not a valid UUID: %v", err))
	}

	for attempt := 0; attempt < 2; attempt++ {
		tok := s.cache.Get()
		if tok == nil {
			return gwerrors.NoneValue("credential cache has no token yet")
		}

		resp, err := s.tryRequest(ctx, tok.Bearer, body)
		if err != nil {
			return gwerrors.RequestError(err)
		}
		func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusUnauthorized && attempt == 0:
			s.logger.Warn().Str("job", job.NotificationID).Msg("push token rejected, refreshing and retrying once")
			if refreshErr := s.cache.Refresh(ctx); refreshErr != nil {
				if updErr := notifications.UpdateStatus(ctx, notificationID, model.StatusFailed); updErr != nil {
					s.logger.Error().Err(updErr).Str("job", job.NotificationID).Msg("failed to mark notification failed")
				}
				return gwerrors.RequestFailed(resp.StatusCode)
			}
			continue
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if updErr := notifications.UpdateStatus(ctx, notificationID, model.StatusSent); updErr != nil {
				return gwerrors.DatabaseError(updErr)
			}
			return nil
		default:
			if updErr := notifications.UpdateStatus(ctx, notificationID, model.StatusFailed); updErr != nil {
				s.logger.Error().Err(updErr).Str("job", job.NotificationID).Msg("failed to mark notification failed")
			}
			return gwerrors.RequestFailed(resp.StatusCode)
		}
	}

	return gwerrors.RequestFailed(http.StatusUnauthorized)
}
