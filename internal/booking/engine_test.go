// internal/booking/engine_test.go
package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/events"
	"github.com/courtlyhq/courtly/internal/testutil"
)

type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

type captureSink struct {
	mu     sync.Mutex
	events []events.BookingEvent
}

func (s *captureSink) BroadcastBookingEvent(event events.BookingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

const testDate = "2027-05-10"

// dayBefore is comfortably ahead of every test booking's check-in.
var dayBefore = time.Date(2027, 5, 9, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *db.DB, db.Facility, db.Court, *captureSink, *mockClock) {
	t.Helper()

	database := testutil.NewTestDB(t)
	facility := testutil.SeedFacility(t, database)
	court := testutil.SeedCourt(t, database, facility.ID)
	sink := &captureSink{}
	clock := &mockClock{now: dayBefore}
	return NewEngine(database, sink, clock), database, facility, court, sink, clock
}

func createRequest(courtIDs []int64, start, end string) CreateRequest {
	return CreateRequest{
		CourtIDs:     courtIDs,
		CheckinDate:  testDate,
		Start:        start,
		End:          end,
		PlayerUserID: "player-1",
		PlayerEmail:  "player@example.com",
	}
}

func TestCreateBooking(t *testing.T) {
	engine, database, facility, court, sink, _ := newTestEngine(t)
	ctx := context.Background()

	created, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if Status(created.Status) != StatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.TotalPrice != 240000 {
		t.Errorf("total price = %d, want 240000 for two hours", created.TotalPrice)
	}

	details, err := database.Queries.ListBookingDetails(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListBookingDetails: %v", err)
	}
	if len(details) != 1 || details[0].CourtID != court.ID || !details[0].Active {
		t.Errorf("unexpected details: %+v", details)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	event := sink.events[0]
	if event.Kind != events.KindBookingCreated || event.FacilityID != facility.ID || event.BookingID != created.ID {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestCreateRejectsInvalidWindows(t *testing.T) {
	engine, _, _, court, _, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		start, end string
	}{
		{name: "misaligned start", start: "10:30", end: "11:30"},
		{name: "misaligned length", start: "10:00", end: "11:30"},
		{name: "before open", start: "07:00", end: "09:00"},
		{name: "past close", start: "21:00", end: "23:00"},
		{name: "inverted", start: "12:00", end: "10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Create(ctx, createRequest([]int64{court.ID}, tt.start, tt.end))
			if !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("expected ErrInvalidWindow, got %v", err)
			}
		})
	}
}

func TestCreateUnknownCourt(t *testing.T) {
	engine, _, _, _, _, _ := newTestEngine(t)

	_, err := engine.Create(context.Background(), createRequest([]int64{9999}, "10:00", "11:00"))
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for unknown court, got %v", err)
	}
}

func TestCreateConflict(t *testing.T) {
	engine, _, _, court, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = engine.Create(ctx, createRequest([]int64{court.ID}, "11:00", "13:00"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	var unavailable SlotUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected SlotUnavailableError, got %T", err)
	}
	if unavailable.CourtID != court.ID {
		t.Errorf("conflict court = %d, want %d", unavailable.CourtID, court.ID)
	}
	if len(unavailable.BookingIDs) != 1 || unavailable.BookingIDs[0] != first.ID {
		t.Errorf("conflict booking ids = %v, want [%d]", unavailable.BookingIDs, first.ID)
	}

	// Back-to-back windows share a boundary minute and never conflict.
	if _, err := engine.Create(ctx, createRequest([]int64{court.ID}, "12:00", "13:00")); err != nil {
		t.Errorf("back-to-back booking rejected: %v", err)
	}
}

func TestCreateConcurrentRace(t *testing.T) {
	tests := []struct {
		name    string
		windows [2][2]string
	}{
		{name: "identical window", windows: [2][2]string{{"10:00", "12:00"}, {"10:00", "12:00"}}},
		{name: "overlapping different start", windows: [2][2]string{{"10:00", "12:00"}, {"11:00", "13:00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, database, _, court, _, _ := newTestEngine(t)
			ctx := context.Background()

			start := make(chan struct{})
			errs := make(chan error, len(tt.windows))
			var wg sync.WaitGroup
			for _, window := range tt.windows {
				wg.Add(1)
				go func(window [2]string) {
					defer wg.Done()
					<-start
					_, err := engine.Create(ctx, createRequest([]int64{court.ID}, window[0], window[1]))
					errs <- err
				}(window)
			}
			close(start)
			wg.Wait()
			close(errs)

			var created, unavailable int
			for err := range errs {
				switch {
				case err == nil:
					created++
				case errors.Is(err, ErrSlotUnavailable):
					unavailable++
				default:
					t.Fatalf("unexpected race loser error: %v", err)
				}
			}
			if created != 1 || unavailable != 1 {
				t.Fatalf("got %d created and %d unavailable, want exactly one of each", created, unavailable)
			}

			// Only the winner's window is held; the full day has exactly one
			// blocking booking on the court.
			checker := NewAvailabilityChecker(database.Queries)
			conflicts, err := checker.FindConflicts(ctx, court.ID, testDate, 0, 24*60)
			if err != nil {
				t.Fatalf("FindConflicts: %v", err)
			}
			if len(conflicts) != 1 {
				t.Fatalf("committed overlapping bookings = %v, want exactly one", conflicts)
			}
		})
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	engine, _, _, court, _, _ := newTestEngine(t)
	ctx := context.Background()

	created, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	cancelled, err := engine.Cancel(ctx, created.ID, "player-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if Status(cancelled.Status) != StatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}

	// The window is bookable again, including its unique slot key.
	if _, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "11:00")); err != nil {
		t.Errorf("rebooking a cancelled window failed: %v", err)
	}
}

func TestCancelAfterCheckinRejected(t *testing.T) {
	engine, _, _, court, _, clock := newTestEngine(t)
	ctx := context.Background()

	created, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clock.now = time.Date(2027, 5, 10, 10, 0, 0, 0, time.UTC)
	if _, err := engine.Cancel(ctx, created.ID, "player-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition at check-in time, got %v", err)
	}
}

func TestConfirmRecordsPayment(t *testing.T) {
	engine, database, _, court, _, _ := newTestEngine(t)
	ctx := context.Background()

	created, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	confirmed, err := engine.Confirm(ctx, created.ID, "pay_abc123")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if Status(confirmed.Status) != StatusConfirmed {
		t.Errorf("status = %q, want confirmed", confirmed.Status)
	}

	payment, err := database.Queries.GetPaymentByBookingID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPaymentByBookingID: %v", err)
	}
	if payment.Reference != "pay_abc123" || payment.Amount != created.TotalPrice || payment.Status != "settled" {
		t.Errorf("unexpected payment: %+v", payment)
	}

	// Confirming twice is an illegal transition.
	if _, err := engine.Confirm(ctx, created.ID, "pay_abc123"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on double confirm, got %v", err)
	}
}

func TestCompleteLifecycle(t *testing.T) {
	engine, _, _, court, sink, _ := newTestEngine(t)
	ctx := context.Background()

	created, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Pending bookings cannot complete.
	if _, err := engine.Complete(ctx, created.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending booking, got %v", err)
	}
	if _, err := engine.Confirm(ctx, created.ID, "pay_1"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	completed, err := engine.Complete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if Status(completed.Status) != StatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}
	eventsBefore := len(sink.events)

	// Idempotent: no error and no duplicate event.
	if _, err := engine.Complete(ctx, created.ID); err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if len(sink.events) != eventsBefore {
		t.Errorf("second completion emitted %d extra events", len(sink.events)-eventsBefore)
	}

	// Terminal states refuse cancellation.
	if _, err := engine.Cancel(ctx, created.ID, "staff"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition cancelling completed booking, got %v", err)
	}
}

func TestMultiCourtBookingIsAtomic(t *testing.T) {
	engine, database, facility, court, _, _ := newTestEngine(t)
	ctx := context.Background()

	second, err := database.Queries.CreateCourt(ctx, db.CreateCourtParams{
		FacilityID:   facility.ID,
		Name:         "Court 2",
		Category:     "indoor",
		PricePerHour: testutil.NullInt64(120000),
		Status:       "active",
	})
	if err != nil {
		t.Fatalf("create second court: %v", err)
	}

	// Occupy only the second court.
	if _, err := engine.Create(ctx, createRequest([]int64{second.ID}, "10:00", "11:00")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = engine.Create(ctx, createRequest([]int64{court.ID, second.ID}, "10:00", "11:00"))
	var unavailable SlotUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected SlotUnavailableError, got %v", err)
	}
	if unavailable.CourtID != second.ID {
		t.Errorf("conflict court = %d, want %d", unavailable.CourtID, second.ID)
	}

	// The free court must not have been claimed by the failed request.
	if _, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "11:00")); err != nil {
		t.Errorf("free court was claimed by a rolled-back booking: %v", err)
	}
}

func TestMultiCourtBookingPrice(t *testing.T) {
	engine, database, facility, court, _, _ := newTestEngine(t)
	ctx := context.Background()

	second, err := database.Queries.CreateCourt(ctx, db.CreateCourtParams{
		FacilityID:   facility.ID,
		Name:         "Court 2",
		Category:     "outdoor",
		PricePerHour: testutil.NullInt64(80000),
		Status:       "active",
	})
	if err != nil {
		t.Fatalf("create second court: %v", err)
	}

	created, err := engine.Create(ctx, createRequest([]int64{court.ID, second.ID}, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.TotalPrice != 2*120000+2*80000 {
		t.Errorf("total price = %d, want 400000", created.TotalPrice)
	}
}

func TestCreateAppliesOverrideDiscount(t *testing.T) {
	engine, database, facility, court, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := database.Queries.CreateTimeSlot(ctx, db.CreateTimeSlotParams{
		FacilityID:      facility.ID,
		SlotDate:        testDate,
		StartMinutes:    600,
		EndMinutes:      660,
		DiscountPercent: 50,
		Status:          "active",
	})
	if err != nil {
		t.Fatalf("create override: %v", err)
	}

	created, err := engine.Create(ctx, createRequest([]int64{court.ID}, "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.TotalPrice != 60000 {
		t.Errorf("discounted price = %d, want 60000", created.TotalPrice)
	}
}
