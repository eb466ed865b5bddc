// internal/booking/slots.go
package booking

import (
	"fmt"

	"github.com/courtlyhq/courtly/internal/db"
)

// Slot is one bookable window in a facility's generated grid. The discount
// comes from an active TimeSlot override covering the window; overrides
// change pricing, never boundaries.
type Slot struct {
	StartMinutes    int64 `json:"start_minutes"`
	EndMinutes      int64 `json:"end_minutes"`
	DiscountPercent int64 `json:"discount_percent"`
}

// GenerateSlots derives the canonical slot grid for a facility day:
// consecutive, non-overlapping windows covering [open, close) in slot
// duration steps. A trailing window that would extend past close is dropped.
func GenerateSlots(facility db.Facility, overrides []db.TimeSlot) ([]Slot, error) {
	open, close, err := operatingWindow(facility)
	if err != nil {
		return nil, err
	}

	duration := facility.SlotDurationMinutes
	var slots []Slot
	for start := open; start+duration <= close; start += duration {
		slot := Slot{StartMinutes: start, EndMinutes: start + duration}
		for _, override := range overrides {
			if override.Status != "active" {
				continue
			}
			if Overlaps(slot.StartMinutes, slot.EndMinutes, override.StartMinutes, override.EndMinutes) {
				slot.DiscountPercent = override.DiscountPercent
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// AlignedWindow reports whether [start, end) is a valid booking window for
// the facility: inside the operating window and aligned to the slot grid,
// or exactly matching an active override window.
func AlignedWindow(facility db.Facility, overrides []db.TimeSlot, start, end int64) (bool, error) {
	open, close, err := operatingWindow(facility)
	if err != nil {
		return false, err
	}

	if start >= end {
		return false, nil
	}

	for _, override := range overrides {
		if override.Status != "active" {
			continue
		}
		if start == override.StartMinutes && end == override.EndMinutes {
			return true, nil
		}
	}

	if start < open || end > close {
		return false, nil
	}
	duration := facility.SlotDurationMinutes
	if (start-open)%duration != 0 || (end-start)%duration != 0 {
		return false, nil
	}
	return true, nil
}

func operatingWindow(facility db.Facility) (open, close int64, err error) {
	if facility.SlotDurationMinutes <= 0 {
		return 0, 0, fmt.Errorf("%w: slot duration must be positive, got %d",
			ErrInvalidConfiguration, facility.SlotDurationMinutes)
	}
	open, err = ParseClock(facility.OpenTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	close, err = ParseClock(facility.CloseTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if open >= close {
		return 0, 0, fmt.Errorf("%w: open time %s is not before close time %s",
			ErrInvalidConfiguration, facility.OpenTime, facility.CloseTime)
	}
	return open, close, nil
}

// ValidateFacilityConfig rejects unusable operating windows at setup time.
func ValidateFacilityConfig(facility db.Facility) error {
	_, _, err := operatingWindow(facility)
	return err
}
