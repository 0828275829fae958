package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for the three failure classes every operation can report.
// Services wrap these with fmt.Errorf("...: %w", ...) to add context; handlers
// map them back to HTTP statuses with Status.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

// Status maps an error to its HTTP status code. Unrecognized errors are
// reported as 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
