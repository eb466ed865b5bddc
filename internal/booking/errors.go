// internal/booking/errors.go
package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidConfiguration means the facility's operating window or slot
	// duration cannot produce a slot grid. Rejected at setup, never retried.
	ErrInvalidConfiguration = errors.New("invalid facility configuration")

	// ErrInvalidWindow means the requested window falls outside operating
	// hours or is misaligned with the slot grid.
	ErrInvalidWindow = errors.New("booking window outside operating hours")

	// ErrSlotUnavailable means a conflicting booking holds the window.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidTransition means the state machine was called out of order.
	ErrInvalidTransition = errors.New("invalid booking state transition")
)

// SlotUnavailableError carries the conflicting booking references so the
// caller can surface them and retry with a different window.
type SlotUnavailableError struct {
	CourtID    int64
	BookingIDs []int64
}

func (e SlotUnavailableError) Error() string {
	if len(e.BookingIDs) == 0 {
		return fmt.Sprintf("court %d unavailable for the requested window", e.CourtID)
	}
	ids := make([]string, len(e.BookingIDs))
	for i, id := range e.BookingIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("court %d unavailable: conflicts with booking(s) %s", e.CourtID, strings.Join(ids, ", "))
}

func (e SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

// TransitionError reports the state a booking was actually in when an
// out-of-order transition was requested.
type TransitionError struct {
	BookingID int64
	From      Status
	To        Status
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("booking %d: cannot transition from %s to %s", e.BookingID, e.From, e.To)
}

func (e TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
