// Package status classifies operation errors into the small set of outcomes
// reported to callers and maps them onto HTTP status codes.
package status

import (
	"errors"
	"net/http"

	"github.com/rzbill/pigeon/internal/syncx"
)

// Code is the outcome of a dispatched operation.
type Code int

const (
	OK Code = iota
	NotFound
	InvalidArgument
	TooLarge
	Internal
)

// Sentinel errors shared by the stores and services.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTooLarge        = errors.New("payload too large")
)

func (c Code) String() string {
	switch c {
	case OK:
		return "Ok"
	case NotFound:
		return "NotFound"
	case InvalidArgument:
		return "InvalidArgument"
	case TooLarge:
		return "TooLarge"
	default:
		return "InternalError"
	}
}

// FromError classifies err. nil is OK; anything unrecognised, including
// persistence failures and a poisoned lock, is Internal.
func FromError(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrInvalidArgument):
		return InvalidArgument
	case errors.Is(err, ErrTooLarge):
		return TooLarge
	default:
		return Internal
	}
}

// IsFatal reports errors that signal corrupted in-memory state.
func IsFatal(err error) bool {
	return errors.Is(err, syncx.ErrPoisoned)
}

// HTTP returns the HTTP status code for c.
func (c Code) HTTP() int {
	switch c {
	case OK:
		return http.StatusOK
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case TooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
