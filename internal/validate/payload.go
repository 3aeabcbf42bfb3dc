// Package validate implements the ingestion payload-shape contract from
// spec.md §4.1: each channel accepts a different JSON shape, checked before
// anything is persisted.
package validate

import (
	"encoding/json"

	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
)

// PushPayload is the channel-specific shape required for channel=push.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// EmailOptionals carries the optional sub-objects of an email payload as
// raw JSON. Payload does not inspect them; the email sender passes them to
// ParseAttachments/ParseReplyTo, which drop malformed entries silently per
// spec.md §4.5.
type EmailOptionals struct {
	Attachments json.RawMessage `json:"attachments,omitempty"`
	ReplyTo     json.RawMessage `json:"reply_to,omitempty"`
}

// Attachment is one SendGrid attachment entry. Disposition defaults to
// "attachment" when the caller omits it, per original_source's
// Attachments::disposition serde default.
type Attachment struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	Disposition string `json:"disposition,omitempty"`
}

// EmailReplyTo is the SendGrid reply_to sub-object.
type EmailReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ParseAttachments best-effort parses raw into attachment entries, applying
// the default disposition and dropping the whole list if any entry is
// missing a required field - mirroring original_source's whole-Vec parse
// failure when an Attachments struct is missing a non-optional field.
func ParseAttachments(raw json.RawMessage) []Attachment {
	if len(raw) == 0 {
		return nil
	}
	var attachments []Attachment
	if err := json.Unmarshal(raw, &attachments); err != nil {
		return nil
	}
	for i := range attachments {
		if attachments[i].Content == "" || attachments[i].Filename == "" || attachments[i].Type == "" {
			return nil
		}
		if attachments[i].Disposition == "" {
			attachments[i].Disposition = "attachment"
		}
	}
	return attachments
}

// ParseReplyTo best-effort parses raw into a reply_to sub-object, dropping
// it entirely if malformed or missing a required field.
func ParseReplyTo(raw json.RawMessage) *EmailReplyTo {
	if len(raw) == 0 {
		return nil
	}
	var replyTo EmailReplyTo
	if err := json.Unmarshal(raw, &replyTo); err != nil {
		return nil
	}
	if replyTo.Email == "" || replyTo.Name == "" {
		return nil
	}
	return &replyTo
}

// EmailPayload is the channel-specific shape required for channel=email.
type EmailPayload struct {
	Subject     string          `json:"subject"`
	Content     string          `json:"content"`
	ContentType string          `json:"content_type,omitempty"`
	Optionals   *EmailOptionals `json:"optionals,omitempty"`
}

// Payload checks that raw conforms to the shape channel requires, per
// spec.md §4.1 step 1. SMS is explicitly unsupported in this core and is
// always rejected.
func Payload(channel model.Channel, raw json.RawMessage) error {
	switch channel {
	case model.ChannelPush:
		var p PushPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return gwerrors.InvalidDataField("payload does not match the push shape {title, body}")
		}
		if p.Title == "" || p.Body == "" {
			return gwerrors.InvalidDataField("push payload requires non-empty title and body")
		}
		return nil
	case model.ChannelEmail:
		var p EmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return gwerrors.InvalidDataField("payload does not match the email shape {subject, content}")
		}
		if p.Subject == "" || p.Content == "" {
			return gwerrors.InvalidDataField("email payload requires non-empty subject and content")
		}
		return nil
	case model.ChannelSMS:
		return gwerrors.InvalidDataField("sms is not supported by this core")
	default:
		return gwerrors.InvalidDataField("unknown channel: " + string(channel))
	}
}

// RequiredFields checks step 2 of spec.md §4.1: channel-specific required
// request fields beyond the payload shape itself.
func RequiredFields(channel model.Channel, recipientType, sender string) error {
	switch channel {
	case model.ChannelPush:
		if recipientType == "" {
			return gwerrors.InvalidDataField("push requires a non-empty recipient_type")
		}
	case model.ChannelEmail:
		if sender == "" {
			return gwerrors.InvalidDataField("email requires a non-empty sender")
		}
	}
	return nil
}
