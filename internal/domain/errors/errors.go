// Package errors defines the notification-gateway error taxonomy and the
// retryable/terminal classification the channel worker actor uses to decide
// whether to re-enqueue a job or dead-letter it immediately.
package errors

import "fmt"

// Kind identifies one of the error categories the delivery pipeline
// recognizes, matching the taxonomy the teacher's original source tracked
// per channel worker (NotiDeliverError) and per ingestion service
// (NotiSrvError).
type Kind string

const (
	KindInvalidDataField    Kind = "invalid_data_field"
	KindDatabaseError       Kind = "database_error"
	KindMissingEnv          Kind = "missing_env"
	KindRedisConnection     Kind = "redis_connection_error"
	KindRedisQueuePop       Kind = "redis_queue_pop_error"
	KindRedisQueuePush      Kind = "redis_queue_push_error"
	KindJSONParse           Kind = "json_parse_error"
	KindRequestError        Kind = "request_error"
	KindRequestFailed       Kind = "request_failed"
	KindGCPAuth             Kind = "gcp_auth_error"
	KindNoneValue           Kind = "none_value"
	KindChannelUnsupported  Kind = "channel_unsupported"
)

// Error is the typed error carried through the delivery pipeline. It wraps
// an underlying cause (when there is one) and knows whether the channel
// worker actor should retry it or dead-letter it immediately.
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the channel worker actor should re-enqueue the
// job (true) or route it directly to the dead-letter queue (false).
//
// This resolves the ambiguity spec.md flags: a malformed payload
// (KindJSONParse) or an unsupported channel (KindChannelUnsupported) can
// never succeed no matter how many times it is retried, so both are
// terminal. InvalidDataField, MissingEnv and NoneValue are terminal as
// well. The remaining kinds - database and queue errors, transport
// failures, provider non-2xx, credential fetch failures - are retryable.
func (e *Error) Retryable() bool { return e.retryable }

func newErr(kind Kind, retryable bool, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause, retryable: retryable}
}

func InvalidDataField(msg string) *Error { return newErr(KindInvalidDataField, false, msg, nil) }

func DatabaseError(cause error) *Error {
	return newErr(KindDatabaseError, true, "database operation failed", cause)
}

func MissingEnv(name string) *Error {
	return newErr(KindMissingEnv, false, "required configuration value is missing: "+name, nil)
}

func RedisConnection(cause error) *Error {
	return newErr(KindRedisConnection, true, "cannot reach queue backend", cause)
}

func RedisQueuePop(cause error) *Error {
	return newErr(KindRedisQueuePop, true, "queue pop failed", cause)
}

func RedisQueuePush(cause error) *Error {
	return newErr(KindRedisQueuePush, true, "queue push failed", cause)
}

func JSONParse(cause error) *Error {
	return newErr(KindJSONParse, false, "payload does not match the channel's expected shape", cause)
}

func RequestError(cause error) *Error {
	return newErr(KindRequestError, true, "transport error calling provider", cause)
}

func RequestFailed(status int) *Error {
	return newErr(KindRequestFailed, true, fmt.Sprintf("provider returned non-2xx status %d", status), nil)
}

func GCPAuth(cause error) *Error {
	return newErr(KindGCPAuth, true, "failed to obtain credential token", cause)
}

func NoneValue(msg string) *Error { return newErr(KindNoneValue, false, msg, nil) }

func ChannelUnsupported(channel string) *Error {
	return newErr(KindChannelUnsupported, false, "channel is not supported by this core: "+channel, nil)
}
