package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an analysis failure. It decides retry behaviour and the
// remedial actions offered to the user.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindTimeout           Kind = "timeout"
	KindRateLimit         Kind = "rate_limit"
	KindPaymentRequired   Kind = "payment_required"
	KindScriptTooLong     Kind = "script_too_long"
	KindMalformedScript   Kind = "malformed_script"
	KindMalformedResponse Kind = "malformed_response"
	KindInvalidJSON       Kind = "invalid_json"
	KindNetwork           Kind = "network"
	KindAPI               Kind = "api"
)

// Error is the typed failure returned by every analysis path.
type Error struct {
	Kind            Kind   `json:"kind"`
	Message         string `json:"error"`
	Suggestion      string `json:"suggestion,omitempty"`
	PrimaryAction   string `json:"primary_action,omitempty"`
	SecondaryAction string `json:"secondary_action,omitempty"`
	Err             error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether a second attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindValidation, KindPaymentRequired, KindRateLimit, KindScriptTooLong, KindMalformedScript:
		return false
	}
	return true
}

// HTTPStatus is the status a handler answers with for this error.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindScriptTooLong, KindMalformedScript:
		return http.StatusUnprocessableEntity
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// NewError builds an Error with the default user-facing metadata for its kind.
func NewError(kind Kind, message string, err error) *Error {
	e := &Error{Kind: kind, Message: message, Err: err}
	switch kind {
	case KindValidation:
		e.Suggestion = "Check that the uploaded file contains the full screenplay text."
	case KindTimeout:
		e.Suggestion = "The analysis took too long. Long scripts can be analyzed in parts."
		e.PrimaryAction = "Retry"
	case KindRateLimit:
		e.Suggestion = "Too many analyses in a short time. Wait a minute before trying again."
	case KindPaymentRequired:
		e.Suggestion = "Your plan has no analyses left."
		e.PrimaryAction = "Upgrade plan"
	case KindScriptTooLong:
		e.Suggestion = fmt.Sprintf("Scripts over %d pages cannot be analyzed in one pass.", MaxPages)
		e.PrimaryAction = fmt.Sprintf("Analyze first %d pages", MaxPages)
		e.SecondaryAction = "Cancel"
	case KindMalformedScript:
		e.Suggestion = "The text does not look like a screenplay (no scene headings were found)."
		e.PrimaryAction = "Upload as plain text"
		e.SecondaryAction = "Cancel"
	case KindMalformedResponse, KindInvalidJSON, KindNetwork, KindAPI:
		e.PrimaryAction = "Retry"
	}
	return e
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindAPI for errors outside the taxonomy.
func KindOf(err error) Kind {
	if ae, ok := AsError(err); ok {
		return ae.Kind
	}
	return KindAPI
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	ae, ok := AsError(err)
	return ok && ae.Kind == kind
}
