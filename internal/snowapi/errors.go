package snowapi

import (
	"errors"
	"fmt"
)

// The workspace error taxonomy. Every failure surfaced by the client is one
// of these types so callers can branch with errors.As:
//
//   - ValidationError: client-side required-field checks; never reaches the
//     network layer.
//   - NetworkError: transport failure or timeout; retriable only by explicit
//     user action.
//   - AuthError: 401 from the remote service; escalated past the workspace
//     to the authentication collaborator.
//   - NotFoundError: 404 for a sys_id the service does not know.
//   - ServerError: any other 4xx/5xx; the server's human-readable detail is
//     carried verbatim.

// ValidationError reports client-side field validation failures. The call is
// blocked before any request is issued.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for f, msg := range e.Fields {
			return fmt.Sprintf("validation failed: %s %s", f, msg)
		}
	}
	return fmt.Sprintf("validation failed on %d fields", len(e.Fields))
}

// NetworkError wraps a transport-level failure, including timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthError means the remote service rejected the session (401). It forces
// navigation out of the workspace to re-authentication; it is never retried.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return "authentication rejected"
	}
	return "authentication rejected: " + e.Detail
}

// NotFoundError means the service has no record for the requested sys_id.
type NotFoundError struct {
	SysID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("incident %s not found", e.SysID)
}

// ServerError is any remaining 4xx/5xx. Detail is the server-provided
// message, surfaced verbatim to the operator.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server error: status %d", e.StatusCode)
	}
	return e.Detail
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
