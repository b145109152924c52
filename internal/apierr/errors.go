package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind categorizes an error for the tool-invocation boundary.
type Kind string

const (
	KindConfiguration Kind = "configuration_error"
	KindAuthorization Kind = "authorization_error"
	KindNotFound      Kind = "not_found"
	KindRemote        Kind = "remote_service_error"
)

// Error is a classified error with a stable kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration returns a configuration error.
func Configuration(msg string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: msg, Err: err}
}

// Authorization returns an authorization error.
func Authorization(msg string, err error) *Error {
	return &Error{Kind: KindAuthorization, Message: msg, Err: err}
}

// NotFound returns a not-found error.
func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

// Remote returns a remote-service error.
func Remote(msg string, err error) *Error {
	return &Error{Kind: KindRemote, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindRemote for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemote
}

// IsNotFound reports whether err is classified as NotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// FromGoogleAPI classifies an error returned by a Google API call.
// A 404 becomes NotFound, 401/403 become Authorization, everything else
// stays a Remote error with the transport's diagnostic detail intact.
func FromGoogleAPI(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return NotFound(fmt.Sprintf("%s: resource not found", op), err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return Authorization(fmt.Sprintf("%s: access denied by remote service", op), err)
		}
	}

	return Remote(fmt.Sprintf("%s failed", op), err)
}
