package models

import "errors"

// Error constants for document operations
var (
	ErrNotAuthorized      = errors.New("member is not authorized")
	ErrNotFound           = errors.New("document not found")
	ErrDecode             = errors.New("image decode failed")
	ErrTransport          = errors.New("platform transport failed")
	ErrStore              = errors.New("store operation failed")
	ErrNoSession          = errors.New("no pending session")
	ErrInvalidSessionMode = errors.New("invalid session mode")
)

// IsExpected reports whether err is an expected denial that gets an explicit
// reply, as opposed to an internal failure that is only logged.
func IsExpected(err error) bool {
	return errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrNotFound)
}
