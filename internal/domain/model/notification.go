package model

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents the notification delivery channel.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Status represents the current state of a notification.
// Valid transitions: pending -> queued -> {sent, failed}.
type Status string

const (
	StatusPending Status = "pending"
	StatusQueued  Status = "queued"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is the core business entity of the application.
// It is technology-agnostic and does not contain any DB or JSON tags.
type Notification struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Recipient  string // opaque: address, device token, topic, condition, etc.
	Channel    Channel
	TemplateID *uuid.UUID
	Status     Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a notification in its initial pending state. The ID is
// generated here, at ingestion, and is immutable afterward.
func New(userID uuid.UUID, recipient string, channel Channel, templateID *uuid.UUID) *Notification {
	now := time.Now().UTC()
	return &Notification{
		ID:         uuid.New(),
		UserID:     userID,
		Recipient:  recipient,
		Channel:    channel,
		TemplateID: templateID,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
