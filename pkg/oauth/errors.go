package oauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine readable error code sent as the "error" field.
type Kind string

const (
	KindInvalidRequest       Kind = "invalid_request"
	KindInvalidClient        Kind = "invalid_client"
	KindInvalidGrant         Kind = "invalid_grant"
	KindUnauthorizedClient   Kind = "unauthorized_client"
	KindUnsupportedGrantType Kind = "unsupported_grant_type"
	KindInvalidToken         Kind = "invalid_token"
	KindAccessDenied         Kind = "access_denied"
	KindInvalidArgument      Kind = "invalid_argument"

	// KindServerError wraps failures that are not part of the protocol, such
	// as a model returning an unexpected error or panicking.
	KindServerError Kind = "server_error"
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInvalidToken:
		return http.StatusUnauthorized
	case KindAccessDenied:
		return http.StatusForbidden
	case KindInvalidArgument, KindServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ErrNotFound is returned (or wrapped) by a model to signal an absent record.
// Returning a nil record with a nil error means the same thing.
var ErrNotFound = errors.New("oauth: not found")

// Error is a protocol error. It is built where the failure happens and is
// never mutated afterwards; the With helpers return copies.
type Error struct {
	Kind        Kind
	Status      int
	Description string

	// Header holds extra response headers such as WWW-Authenticate.
	Header http.Header

	// RedirectURI is set once the authorization flow has established a
	// redirect target. Errors carrying it are delivered as a redirect.
	RedirectURI string

	// State is echoed back on redirect delivery.
	State string

	cause error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
	ErrInvalidClient        = &Error{Kind: KindInvalidClient}
	ErrInvalidGrant         = &Error{Kind: KindInvalidGrant}
	ErrUnauthorizedClient   = &Error{Kind: KindUnauthorizedClient}
	ErrUnsupportedGrantType = &Error{Kind: KindUnsupportedGrantType}
	ErrInvalidToken         = &Error{Kind: KindInvalidToken}
	ErrAccessDenied         = &Error{Kind: KindAccessDenied}
	ErrInvalidArgument      = &Error{Kind: KindInvalidArgument}
	ErrServerError          = &Error{Kind: KindServerError}
)

// NewError creates an Error of the given kind with the status implied by it.
func NewError(kind Kind, description string) *Error {
	e := &Error{
		Kind:        kind,
		Status:      kind.Status(),
		Description: description,
		Header:      http.Header{},
	}

	switch kind {
	case KindInvalidClient:
		e.Header.Set("WWW-Authenticate", `Basic realm="Service"`)
	case KindInvalidToken:
		e.Header.Set("WWW-Authenticate", `Bearer realm="Service", error="invalid_token"`)
	}

	return e
}

func newErrorf(kind Kind, format string, args ...any) *Error {
	return NewError(kind, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Unwrap exposes the diagnostic cause. The cause is never serialized.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.cause = cause
	return c
}

// WithRedirect returns a copy of e to be delivered to redirectURI.
func (e *Error) WithRedirect(redirectURI, state string) *Error {
	c := e.clone()
	c.RedirectURI = redirectURI
	c.State = state
	return c
}

func (e *Error) clone() *Error {
	c := *e
	c.Header = e.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	return &c
}

// AsError converts err into a protocol error. Errors that are not already
// protocol errors become server_error with err kept as the cause.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		if pe.Status == 0 {
			// Bare sentinels have no status or headers.
			return NewError(pe.Kind, pe.Description).WithCause(pe.cause)
		}
		return pe
	}

	return NewError(KindServerError, "Server error: an unexpected error occurred").WithCause(err)
}

// IsProtocolError reports whether err originates from this package.
func IsProtocolError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
