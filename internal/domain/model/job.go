package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Job is the wire payload placed on the main queue and, when poisoned or
// retry-exhausted, on the companion dead-letter queue. It mirrors the
// Notification row it was derived from plus the information a Sender needs
// that the row itself does not carry (recipient_type, sender, the opaque
// provider payload).
type Job struct {
	NotificationID string          `json:"notification_id"`
	Recipient      string          `json:"recipient"`
	RecipientType  string          `json:"recipient_type,omitempty"`
	Sender         string          `json:"sender,omitempty"`
	Channel        string          `json:"channel"`
	TemplateID     string          `json:"template_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	RetryCount     int             `json:"retry_count"`
}

// MaxRetries is the bound on Job.RetryCount before a job is dead-lettered.
// After a retryable failure RetryCount is incremented first; once the
// incremented value reaches MaxRetries the job is moved to the failed queue
// instead of being retried, so a job is sent at most MaxRetries times.
const MaxRetries = 3

// NotificationUUID parses NotificationID, which is carried as a string on
// the wire so a poisoned job (bad UUID, bad everything) can still be
// JSON-decoded far enough to be dead-lettered.
func (j *Job) NotificationUUID() (uuid.UUID, error) {
	return uuid.Parse(j.NotificationID)
}
