package http

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CreateNotificationRequest defines the structure for a new notification
// request, per spec.md §4.1. Validation beyond basic JSON decoding (payload
// shape, channel-specific requirements, UUID parsing) is performed by the
// service layer, not by gin binding tags, since the validation contract is
// ordered and channel-dependent.
type CreateNotificationRequest struct {
	UserID        string          `json:"user_id"`
	Recipient     string          `json:"recipient"`
	RecipientType string          `json:"recipient_type,omitempty"`
	Sender        string          `json:"sender,omitempty"`
	Channel       string          `json:"channel"`
	TemplateID    string          `json:"template_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// CreateNotificationResponse is returned on a successful send, per spec.md §4.1.
type CreateNotificationResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// NotificationView is the read-model returned by GET /notification/:id.
type NotificationView struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Recipient  string    `json:"recipient"`
	Channel    string    `json:"channel"`
	TemplateID *string   `json:"template_id,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ErrorResponse is the flat error envelope spec.md §4.1/§7 specifies for
// every failure the ingestion handler surfaces.
type ErrorResponse struct {
	Messages []string `json:"messages"`
}
