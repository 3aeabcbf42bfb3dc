package senders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/notihub/gateway/internal/config"
	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/validate"
	"github.com/rs/zerolog"
)

// EmailSender delivers email notifications through a transactional-mail
// HTTP JSON API (SendGrid v3 mail/send shape), grounded on original_source's
// EmailWorker. Unlike the push channel, there is no token refresh loop:
// the API key is a static bearer credential for the process lifetime.
type EmailSender struct {
	client *http.Client
	url    string
	apiKey string
	logger zerolog.Logger
}

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

func NewEmailSender(cfg *config.Config, logger *zerolog.Logger) *EmailSender {
	return &EmailSender{
		client: &http.Client{},
		url:    sendGridURL,
		apiKey: cfg.Email.APIKey,
		logger: logger.With().Str("component", "email_sender").Logger(),
	}
}

// Send implements Sender for channel=email. Malformed optionals
// (attachments, reply_to) are dropped rather than failing the send, per
// original_source's best-effort parsing of payload.optionals.
func (s *EmailSender) Send(ctx context.Context, job *model.Job, notifications repo.NotificationRepository) error {
	var payload validate.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return gwerrors.JSONParse(err)
	}
	if job.Sender == "" {
		return gwerrors.NoneValue("email job is missing sender")
	}

	message := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": job.Recipient}}},
		},
		"from":    map[string]string{"email": job.Sender},
		"subject": payload.Subject,
		"content": []map[string]string{
			{"type": contentTypeOrDefault(payload.ContentType), "value": payload.Content},
		},
	}

	if payload.Optionals != nil {
		if attachments := validate.ParseAttachments(payload.Optionals.Attachments); attachments != nil {
			message["attachments"] = attachments
		}
		if replyTo := validate.ParseReplyTo(payload.Optionals.ReplyTo); replyTo != nil {
			message["reply_to"] = replyTo
		}
	}

	body, err := json.Marshal(message)
	if err != nil {
		return gwerrors.JSONParse(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return gwerrors.RequestError(err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return gwerrors.RequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	notificationID, err := uuid.Parse(job.NotificationID)
	if err != nil {
		return gwerrors.InvalidDataField(fmt.Sprintf("notification_id is not a valid UUID: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gwerrors.RequestFailed(resp.StatusCode)
	}

	if err := notifications.UpdateStatus(ctx, notificationID, model.StatusSent); err != nil {
		return gwerrors.DatabaseError(err)
	}
	return nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "text/plain"
	}
	return ct
}
