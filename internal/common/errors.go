// Package common defines the error taxonomy and shared constants used across
// the client engine and the reference server. Callers should use errors.Is
// (or KindOf) to match these values.
package common

import (
	"context"
	"errors"
)

var (
	// ErrNetwork reports a transport failure (no connectivity, timeouts).
	// Always safe to retry.
	ErrNetwork = errors.New("network error")

	// ErrServer reports a non-successful server response that is not an
	// authentication failure.
	ErrServer = errors.New("server error")

	// ErrUnauthorized reports that the server rejected the local credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnexpected wraps programming and parse errors.
	ErrUnexpected = errors.New("unexpected error")

	// ErrPrecondition reports a caller bug, e.g. an empty id set passed to a
	// bulk status update.
	ErrPrecondition = errors.New("precondition failed")

	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")

	// ErrSyncNotAllowed is returned when the session state does not permit
	// a sync cycle to start or continue.
	ErrSyncNotAllowed = errors.New("sync not allowed in current session state")

	ErrInvalidToken = errors.New("invalid token")
)

// Kind is the coarse classification of an error.
type Kind string

const (
	KindNone         Kind = ""
	KindNetwork      Kind = "network"
	KindServer       Kind = "server"
	KindUnauthorized Kind = "unauthorized"
	KindPrecondition Kind = "precondition"
	KindCanceled     Kind = "canceled"
	KindUnexpected   Kind = "unexpected"
)

// KindOf classifies err. Errors outside the taxonomy are unexpected.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, ErrServer):
		return KindServer
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	default:
		return KindUnexpected
	}
}
