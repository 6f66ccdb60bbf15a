package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrMovieNotInCatalog = errors.New("movie not found in catalog")
	ErrInvalidTransition = errors.New("booking status transition not allowed")
	ErrSessionMismatch   = errors.New("a different checkout session is already attached to this booking")
)

// SeatConflictError reports which seats of a reservation attempt were already
// taken. It is an expected outcome of concurrent use, not a fault.
type SeatConflictError struct {
	Seats []string
}

func (e SeatConflictError) Error() string {
	return fmt.Sprintf("seat(s) not available: %s", strings.Join(e.Seats, ", "))
}
