// internal/booking/availability.go
package booking

import (
	"context"
	"fmt"

	"github.com/courtlyhq/courtly/internal/db"
)

// Overlaps is the half-open interval overlap predicate shared by slot
// generation and conflict detection: back-to-back windows never overlap.
func Overlaps(s1, e1, s2, e2 int64) bool {
	return s1 < e2 && s2 < e1
}

// AvailabilityChecker answers conflict questions against committed booking
// state. Only bookings in blocking states count; cancelled bookings are
// excluded. The create path re-runs this check inside its transaction.
type AvailabilityChecker struct {
	queries *db.Queries
}

func NewAvailabilityChecker(queries *db.Queries) *AvailabilityChecker {
	return &AvailabilityChecker{queries: queries}
}

// FindConflicts returns the ids of non-cancelled bookings whose window on
// the court and date overlaps [start, end).
func (c *AvailabilityChecker) FindConflicts(ctx context.Context, courtID int64, checkinDate string, start, end int64) ([]int64, error) {
	rows, err := c.queries.ListConflictingBookings(ctx, db.ListConflictingBookingsParams{
		CourtID:      courtID,
		CheckinDate:  checkinDate,
		StartMinutes: start,
		EndMinutes:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("availability check failed: %w", err)
	}

	var ids []int64
	for _, row := range rows {
		ids = append(ids, row.BookingID)
	}
	return ids, nil
}

// IsAvailable reports whether the candidate window is free of conflicts.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, courtID int64, checkinDate string, start, end int64) (bool, error) {
	conflicts, err := c.FindConflicts(ctx, courtID, checkinDate, start, end)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}
