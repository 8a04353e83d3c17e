// Package errs defines the error taxonomy shared by every engine component.
//
// Errors are values carrying a Kind tag and a short, user-facing Message.
// Debug detail (the wrapped Cause) is never rendered to a caller; it is only
// available to a logger via Unwrap.
package errs

import "errors"

// Kind classifies an engine error. Callers switch on Kind, never on message text.
type Kind string

const (
	GeocodingNotFound      Kind = "geocoding_not_found"
	GeocodingAmbiguous     Kind = "geocoding_ambiguous"
	GeocodingInvalidInput  Kind = "geocoding_invalid_input"
	GeocodingServiceError  Kind = "geocoding_service_error"
	ApiRateLimited         Kind = "api_rate_limited"
	ApiTimeout             Kind = "api_timeout"
	ApiUnavailable         Kind = "api_unavailable"
	ApiInvalidResponse     Kind = "api_invalid_response"
	ApiAuthFailed          Kind = "api_auth_failed"
	ConfigInvalid          Kind = "config_invalid"
	ConfigMissing          Kind = "config_missing"
	ConfigParseError       Kind = "config_parse_error"
	CacheReadError         Kind = "cache_read_error"
	CacheWriteError        Kind = "cache_write_error"
	CacheExpired           Kind = "cache_expired"
	CacheCorrupted         Kind = "cache_corrupted"
	InvalidInput           Kind = "invalid_input"
	Cancelled              Kind = "cancelled"
	Unknown                Kind = "unknown"
)

// Error is the concrete error value returned across package boundaries.
type Error struct {
	Kind    Kind
	Message string // short, safe to show directly to a user
	Cause   error  // debug detail; log it, never display it

	// RetryAfterSeconds is set only for ApiRateLimited errors that carried
	// an upstream Retry-After header.
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that carries cause as debug detail only.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
