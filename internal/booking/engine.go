// internal/booking/engine.go
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/events"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// EventSink receives one event per successful transition. Delivery is
// best-effort; the engine never fails an operation over a sink error.
type EventSink interface {
	BroadcastBookingEvent(event events.BookingEvent)
}

// Engine owns the booking lifecycle. The conflict check and the reservation
// write happen in one transaction; the slot uniqueness index backs the check
// so the loser of a race fails at commit time with ErrSlotUnavailable.
type Engine struct {
	database *db.DB
	sink     EventSink
	clock    Clock
}

func NewEngine(database *db.DB, sink EventSink, clock Clock) *Engine {
	if clock == nil {
		clock = realClock{}
	}
	return &Engine{database: database, sink: sink, clock: clock}
}

// CreateRequest is a candidate reservation. A request may span multiple
// courts; each court line is conflict-checked independently and shares the
// one booking identity.
type CreateRequest struct {
	CourtIDs     []int64
	CheckinDate  string
	Start        string
	End          string
	PlayerUserID string
	PlayerEmail  string
}

// Create validates the candidate window, checks conflicts, and persists a
// Pending booking atomically. Returns ErrInvalidWindow for out-of-window or
// misaligned requests and SlotUnavailableError on conflict.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (db.Booking, error) {
	if len(req.CourtIDs) == 0 {
		return db.Booking{}, fmt.Errorf("%w: no courts requested", ErrInvalidWindow)
	}
	if _, err := time.Parse(DateLayout, req.CheckinDate); err != nil {
		return db.Booking{}, fmt.Errorf("%w: check-in date %q must be in YYYY-MM-DD format", ErrInvalidWindow, req.CheckinDate)
	}
	start, err := ParseClock(req.Start)
	if err != nil {
		return db.Booking{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	end, err := ParseClock(req.End)
	if err != nil {
		return db.Booking{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	if start >= end {
		return db.Booking{}, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidWindow, req.Start, req.End)
	}

	courts := make([]db.Court, 0, len(req.CourtIDs))
	var facility db.Facility
	for i, courtID := range req.CourtIDs {
		court, err := e.database.Queries.GetCourtByID(ctx, courtID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return db.Booking{}, fmt.Errorf("%w: court %d does not exist", ErrInvalidWindow, courtID)
			}
			return db.Booking{}, fmt.Errorf("load court %d: %w", courtID, err)
		}
		if court.Status != "active" {
			return db.Booking{}, SlotUnavailableError{CourtID: courtID}
		}
		if i == 0 {
			facility, err = e.database.Queries.GetFacilityByID(ctx, court.FacilityID)
			if err != nil {
				return db.Booking{}, fmt.Errorf("load facility %d: %w", court.FacilityID, err)
			}
		} else if court.FacilityID != facility.ID {
			return db.Booking{}, fmt.Errorf("%w: courts belong to different facilities", ErrInvalidWindow)
		}
		courts = append(courts, court)
	}

	overrides, err := e.database.Queries.ListActiveTimeSlots(ctx, db.ListActiveTimeSlotsParams{
		FacilityID: facility.ID,
		SlotDate:   req.CheckinDate,
	})
	if err != nil {
		return db.Booking{}, fmt.Errorf("load time slot overrides: %w", err)
	}

	aligned, err := AlignedWindow(facility, overrides, start, end)
	if err != nil {
		return db.Booking{}, err
	}
	if !aligned {
		return db.Booking{}, fmt.Errorf("%w: [%s, %s) does not fit the %s-%s grid",
			ErrInvalidWindow, FormatClock(start), FormatClock(end), facility.OpenTime, facility.CloseTime)
	}

	prices := make([]int64, len(courts))
	var total int64
	for i, court := range courts {
		prices[i] = windowPrice(court, overrides, start, end)
		total += prices[i]
	}

	var created db.Booking
	err = e.database.RunInTx(ctx, func(txdb *db.DB) error {
		for _, court := range courts {
			conflicts, err := txdb.Queries.ListConflictingBookings(ctx, db.ListConflictingBookingsParams{
				CourtID:      court.ID,
				CheckinDate:  req.CheckinDate,
				StartMinutes: start,
				EndMinutes:   end,
			})
			if err != nil {
				return fmt.Errorf("availability check failed: %w", err)
			}
			if len(conflicts) > 0 {
				ids := make([]int64, len(conflicts))
				for i, row := range conflicts {
					ids[i] = row.BookingID
				}
				return SlotUnavailableError{CourtID: court.ID, BookingIDs: ids}
			}
		}

		booking, err := txdb.Queries.CreateBooking(ctx, db.CreateBookingParams{
			CheckinDate:  req.CheckinDate,
			StartMinutes: start,
			EndMinutes:   end,
			TotalPrice:   total,
			Status:       string(StatusPending),
			PlayerUserID: req.PlayerUserID,
			PlayerEmail:  req.PlayerEmail,
		})
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		for i, court := range courts {
			err := txdb.Queries.AddBookingDetail(ctx, db.AddBookingDetailParams{
				BookingID:    booking.ID,
				CourtID:      court.ID,
				CheckinDate:  req.CheckinDate,
				StartMinutes: start,
				EndMinutes:   end,
				Price:        prices[i],
			})
			if err != nil {
				if db.IsUniqueViolation(err) {
					// Lost the commit race for the normalized slot key.
					return SlotUnavailableError{CourtID: court.ID}
				}
				return fmt.Errorf("add booking detail: %w", err)
			}
		}

		created = booking
		return nil
	})
	if err != nil {
		return db.Booking{}, err
	}

	e.emit(events.KindBookingCreated, created, facility.ID, req.CourtIDs)
	return created, nil
}

// Confirm transitions Pending -> Confirmed once the payment collaborator has
// reported settlement, recording the settled payment in the same transaction.
func (e *Engine) Confirm(ctx context.Context, bookingID int64, paymentReference string) (db.Booking, error) {
	var confirmed db.Booking
	err := e.database.RunInTx(ctx, func(txdb *db.DB) error {
		current, err := txdb.Queries.GetBookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", bookingID, err)
		}
		if Status(current.Status) != StatusPending {
			return TransitionError{BookingID: bookingID, From: Status(current.Status), To: StatusConfirmed}
		}

		if _, err := txdb.Queries.UpdateBookingStatus(ctx, db.UpdateBookingStatusParams{
			ID:     bookingID,
			Status: string(StatusConfirmed),
		}); err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if _, err := txdb.Queries.UpsertSettledPayment(ctx, db.UpsertSettledPaymentParams{
			BookingID: bookingID,
			Reference: paymentReference,
			Amount:    current.TotalPrice,
		}); err != nil {
			return fmt.Errorf("record settled payment: %w", err)
		}

		current.Status = string(StatusConfirmed)
		confirmed = current
		return nil
	})
	if err != nil {
		return db.Booking{}, err
	}

	e.emitLoaded(ctx, events.KindBookingUpdated, confirmed)
	return confirmed, nil
}

// Cancel transitions Pending|Confirmed -> Cancelled and releases the slot
// claims. Cancellation is only allowed before the check-in time.
func (e *Engine) Cancel(ctx context.Context, bookingID int64, actor string) (db.Booking, error) {
	var cancelled db.Booking
	err := e.database.RunInTx(ctx, func(txdb *db.DB) error {
		current, err := txdb.Queries.GetBookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", bookingID, err)
		}
		status := Status(current.Status)
		if status.Terminal() {
			return TransitionError{BookingID: bookingID, From: status, To: StatusCancelled}
		}

		checkin, err := e.checkinTime(ctx, txdb.Queries, current)
		if err != nil {
			return err
		}
		if !e.clock.Now().Before(checkin) {
			return TransitionError{BookingID: bookingID, From: status, To: StatusCancelled}
		}

		if _, err := txdb.Queries.UpdateBookingStatus(ctx, db.UpdateBookingStatusParams{
			ID:     bookingID,
			Status: string(StatusCancelled),
		}); err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if err := txdb.Queries.DeactivateBookingDetails(ctx, bookingID); err != nil {
			return fmt.Errorf("release booking slots: %w", err)
		}

		current.Status = string(StatusCancelled)
		cancelled = current
		return nil
	})
	if err != nil {
		return db.Booking{}, err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", bookingID).
		Str("actor", actor).
		Msg("Booking cancelled")
	e.emitLoaded(ctx, events.KindBookingCancelled, cancelled)
	return cancelled, nil
}

// Complete transitions Confirmed -> Completed once the check-in time has
// elapsed. Completing an already-completed booking is a no-op.
func (e *Engine) Complete(ctx context.Context, bookingID int64) (db.Booking, error) {
	var completed db.Booking
	var alreadyDone bool
	err := e.database.RunInTx(ctx, func(txdb *db.DB) error {
		current, err := txdb.Queries.GetBookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", bookingID, err)
		}
		status := Status(current.Status)
		if status == StatusCompleted {
			alreadyDone = true
			completed = current
			return nil
		}
		if status != StatusConfirmed {
			return TransitionError{BookingID: bookingID, From: status, To: StatusCompleted}
		}

		if _, err := txdb.Queries.UpdateBookingStatus(ctx, db.UpdateBookingStatusParams{
			ID:     bookingID,
			Status: string(StatusCompleted),
		}); err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		current.Status = string(StatusCompleted)
		completed = current
		return nil
	})
	if err != nil {
		return db.Booking{}, err
	}

	if !alreadyDone {
		e.emitLoaded(ctx, events.KindBookingCompleted, completed)
	}
	return completed, nil
}

func (e *Engine) checkinTime(ctx context.Context, queries *db.Queries, b db.Booking) (time.Time, error) {
	facilityID, err := queries.GetBookingFacilityID(ctx, b.ID)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve booking facility: %w", err)
	}
	facility, err := queries.GetFacilityByID(ctx, facilityID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load facility %d: %w", facilityID, err)
	}
	loc := time.Local
	if facility.Timezone != "" {
		if loaded, loadErr := time.LoadLocation(facility.Timezone); loadErr == nil {
			loc = loaded
		} else {
			log.Ctx(ctx).Error().Err(loadErr).Str("timezone", facility.Timezone).Msg("Failed to load facility timezone")
		}
	}
	return CheckinTime(b.CheckinDate, b.StartMinutes, loc)
}

func (e *Engine) emit(kind string, b db.Booking, facilityID int64, courtIDs []int64) {
	if e.sink == nil {
		return
	}
	e.sink.BroadcastBookingEvent(events.BookingEvent{
		Kind:         kind,
		BookingID:    b.ID,
		FacilityID:   facilityID,
		CourtIDs:     courtIDs,
		CheckinDate:  b.CheckinDate,
		StartMinutes: b.StartMinutes,
		EndMinutes:   b.EndMinutes,
		Status:       b.Status,
		PlayerUserID: b.PlayerUserID,
	})
}

func (e *Engine) emitLoaded(ctx context.Context, kind string, b db.Booking) {
	if e.sink == nil {
		return
	}
	facilityID, err := e.database.Queries.GetBookingFacilityID(ctx, b.ID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("booking_id", b.ID).Msg("Failed to resolve facility for event")
		return
	}
	details, err := e.database.Queries.ListBookingDetails(ctx, b.ID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("booking_id", b.ID).Msg("Failed to load booking courts for event")
		return
	}
	courtIDs := make([]int64, 0, len(details))
	for _, detail := range details {
		courtIDs = append(courtIDs, detail.CourtID)
	}
	e.emit(kind, b, facilityID, courtIDs)
}

// windowPrice computes the court's price for [start, end), applying the
// discount of an active override covering the window.
func windowPrice(court db.Court, overrides []db.TimeSlot, start, end int64) int64 {
	if !court.PricePerHour.Valid {
		return 0
	}
	price := court.PricePerHour.Int64 * (end - start) / 60
	for _, override := range overrides {
		if override.Status != "active" {
			continue
		}
		if Overlaps(start, end, override.StartMinutes, override.EndMinutes) {
			price = price * (100 - override.DiscountPercent) / 100
			break
		}
	}
	return price
}

