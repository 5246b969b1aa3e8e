// Package apperr defines the error kinds the core surfaces to callers.
// Handlers translate these into HTTP status codes; everything else wraps
// them with fmt.Errorf("%w: ...") so errors.Is keeps working.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrDuplicateRequest = errors.New("friend request already sent")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrNotFound         = errors.New("not found")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrStore            = errors.New("store unavailable")
)

// Status maps an error kind to its HTTP status code. Unknown errors are
// treated as store/internal failures.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateRequest), errors.Is(err, ErrAlreadyFriends):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
