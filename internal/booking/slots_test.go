// internal/booking/slots_test.go
package booking

import (
	"errors"
	"testing"

	"github.com/courtlyhq/courtly/internal/db"
)

func testFacility(open, close string, duration int64) db.Facility {
	return db.Facility{
		ID:                  1,
		OpenTime:            open,
		CloseTime:           close,
		SlotDurationMinutes: duration,
	}
}

func TestGenerateSlotsFullDay(t *testing.T) {
	slots, err := GenerateSlots(testFacility("08:00", "22:00", 60), nil)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}

	if len(slots) != 14 {
		t.Fatalf("expected 14 hourly slots between 08:00 and 22:00, got %d", len(slots))
	}
	if slots[0].StartMinutes != 480 || slots[0].EndMinutes != 540 {
		t.Errorf("first slot = [%d, %d), want [480, 540)", slots[0].StartMinutes, slots[0].EndMinutes)
	}
	if last := slots[len(slots)-1]; last.EndMinutes != 1320 {
		t.Errorf("last slot ends at %d, want 1320", last.EndMinutes)
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].StartMinutes != slots[i-1].EndMinutes {
			t.Errorf("slot %d starts at %d, previous ends at %d", i, slots[i].StartMinutes, slots[i-1].EndMinutes)
		}
	}
}

func TestGenerateSlotsDropsTrailingPartial(t *testing.T) {
	slots, err := GenerateSlots(testFacility("08:00", "21:30", 60), nil)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 13 {
		t.Fatalf("expected 13 slots with a dropped 21:00-21:30 remainder, got %d", len(slots))
	}
	if last := slots[len(slots)-1]; last.EndMinutes != 1260 {
		t.Errorf("last slot ends at %d, want 1260", last.EndMinutes)
	}
}

func TestGenerateSlotsAppliesOverrideDiscount(t *testing.T) {
	overrides := []db.TimeSlot{
		{StartMinutes: 600, EndMinutes: 720, DiscountPercent: 25, Status: "active"},
		{StartMinutes: 780, EndMinutes: 840, DiscountPercent: 50, Status: "inactive"},
	}

	slots, err := GenerateSlots(testFacility("08:00", "22:00", 60), overrides)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}

	byStart := make(map[int64]Slot, len(slots))
	for _, slot := range slots {
		byStart[slot.StartMinutes] = slot
	}

	if got := byStart[600].DiscountPercent; got != 25 {
		t.Errorf("10:00 slot discount = %d, want 25", got)
	}
	if got := byStart[660].DiscountPercent; got != 25 {
		t.Errorf("11:00 slot discount = %d, want 25", got)
	}
	if got := byStart[720].DiscountPercent; got != 0 {
		t.Errorf("12:00 slot discount = %d, want 0", got)
	}
	// Inactive overrides never affect the grid.
	if got := byStart[780].DiscountPercent; got != 0 {
		t.Errorf("13:00 slot discount = %d, want 0", got)
	}
}

func TestGenerateSlotsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		facility db.Facility
	}{
		{name: "zero duration", facility: testFacility("08:00", "22:00", 0)},
		{name: "negative duration", facility: testFacility("08:00", "22:00", -30)},
		{name: "open after close", facility: testFacility("22:00", "08:00", 60)},
		{name: "open equals close", facility: testFacility("08:00", "08:00", 60)},
		{name: "unparseable open", facility: testFacility("late", "22:00", 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateSlots(tt.facility, nil); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestAlignedWindow(t *testing.T) {
	facility := testFacility("08:00", "22:00", 60)
	overrides := []db.TimeSlot{
		{StartMinutes: 615, EndMinutes: 705, Status: "active"},
	}

	tests := []struct {
		name       string
		start, end int64
		want       bool
	}{
		{name: "single aligned slot", start: 480, end: 540, want: true},
		{name: "multi slot window", start: 480, end: 660, want: true},
		{name: "full day", start: 480, end: 1320, want: true},
		{name: "before open", start: 420, end: 540, want: false},
		{name: "past close", start: 1260, end: 1380, want: false},
		{name: "misaligned start", start: 510, end: 570, want: false},
		{name: "misaligned length", start: 480, end: 570, want: false},
		{name: "empty window", start: 540, end: 540, want: false},
		{name: "inverted window", start: 600, end: 540, want: false},
		{name: "exact override match", start: 615, end: 705, want: true},
		{name: "partial override overlap", start: 615, end: 675, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AlignedWindow(facility, overrides, tt.start, tt.end)
			if err != nil {
				t.Fatalf("AlignedWindow: %v", err)
			}
			if got != tt.want {
				t.Errorf("AlignedWindow(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
