package gantry

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorKind classifies a deployment failure into the small uniform taxonomy
// that callers see, regardless of which platform produced the underlying
// error.
type ErrorKind string

const (
	// ErrorKindValidation indicates the deployment request itself is
	// invalid. Detected before any platform call is made.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindCredential indicates the caller-supplied credential material
	// is malformed and no platform client could be constructed from it.
	ErrorKindCredential ErrorKind = "credential"
	// ErrorKindAuthentication indicates the platform rejected the client's
	// credentials. Unlike ErrorKindCredential, this is detected lazily at
	// dispatch time.
	ErrorKindAuthentication ErrorKind = "authentication"
	// ErrorKindPlatformRejected indicates the platform understood the
	// request and declined it - a quota, a naming conflict, a manifest the
	// platform considers invalid.
	ErrorKindPlatformRejected ErrorKind = "platform_rejected"
	// ErrorKindPlatformUnavailable indicates the platform could not be
	// reached - a transport failure, a timeout, a cancelled call.
	ErrorKindPlatformUnavailable ErrorKind = "platform_unavailable"
	// ErrorKindUnknown is the catch-all for failures that fit no other kind.
	ErrorKindUnknown ErrorKind = "unknown"
)

// HTTPStatus returns the HTTP status code conventionally associated with the
// error kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrorKindValidation, ErrorKindCredential:
		return http.StatusBadRequest
	case ErrorKindAuthentication:
		return http.StatusUnauthorized
	case ErrorKindPlatformUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the uniform error returned by every deployment operation. It
// carries the taxonomy kind, a human-readable message derived from the
// platform's own error text, and the HTTP status to surface to the caller.
// The message never embeds credential material.
type Error struct {
	// Kind is the taxonomy classification.
	Kind ErrorKind
	// Status is the HTTP status to return. A zero value means the kind's
	// default applies; platform mappers set it explicitly to mirror a
	// platform-reported status (e.g. 403 vs 401, 409 on conflict).
	Status int

	message string
	cause   error
}

// NewError returns an error of the given kind with a message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, message: message}
}

// Errorf returns an error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, message: fmt.Sprintf(format, args...)}
}

// WrapError returns an error of the given kind that wraps an underlying
// cause. The cause's text is appended to the message.
func WrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, message: message, cause: err}
}

// SetStatus sets the HTTP status the error should surface, overriding the
// kind's default.
func (e *Error) SetStatus(status int) *Error {
	e.Status = status
	return e
}

// HTTPStatus returns the status to surface: the explicitly-set one if any,
// otherwise the kind's default.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.HTTPStatus()
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.message
	}
	if e.message == "" {
		return e.cause.Error()
	}
	return e.message + ": " + e.cause.Error()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the underlying cause, if any.
func (e *Error) Cause() error {
	return e.cause
}

// AsError extracts a gantry Error from err, unwrapping any layers added by
// intermediate callers. The second return is false when err contains no
// gantry Error.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}

// NormalizeError coerces an arbitrary error into a gantry Error. Errors
// already carrying a kind pass through unchanged (even when wrapped);
// anything else becomes ErrorKindUnknown.
func NormalizeError(err error) *Error {
	if err == nil {
		return nil
	}
	if gerr, ok := AsError(err); ok {
		return gerr
	}
	return &Error{Kind: ErrorKindUnknown, cause: err}
}

func hasKind(err error, kind ErrorKind) bool {
	gerr, ok := AsError(err)
	return ok && gerr.Kind == kind
}

// IsValidationError returns whether err is a request validation failure.
func IsValidationError(err error) bool {
	return hasKind(err, ErrorKindValidation)
}

// IsCredentialError returns whether err indicates malformed credential
// material.
func IsCredentialError(err error) bool {
	return hasKind(err, ErrorKindCredential)
}

// IsAuthenticationError returns whether err indicates the platform rejected
// the supplied credentials.
func IsAuthenticationError(err error) bool {
	return hasKind(err, ErrorKindAuthentication)
}

// IsPlatformRejectedError returns whether err indicates the platform
// understood and declined the request.
func IsPlatformRejectedError(err error) bool {
	return hasKind(err, ErrorKindPlatformRejected)
}

// IsPlatformUnavailableError returns whether err indicates the platform
// could not be reached.
func IsPlatformUnavailableError(err error) bool {
	return hasKind(err, ErrorKindPlatformUnavailable)
}
