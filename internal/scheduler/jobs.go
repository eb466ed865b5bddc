package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/booking"
	"github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/email"
)

const (
	reminderLeadTime  = 24 * time.Hour
	reminderJobWindow = 15 * time.Minute
	jobTimeout        = 2 * time.Minute
)

// RegisterBookingJobs registers the completion sweep and the player reminder
// job. The email service may be nil; reminders are then skipped.
func RegisterBookingJobs(database *db.DB, engine *booking.Engine, notifier *email.Service) error {
	if database == nil || engine == nil {
		return fmt.Errorf("booking jobs require database and engine")
	}
	if err := registerCompletionSweep(database, engine); err != nil {
		return err
	}
	return registerReminderJob(database, notifier)
}

// registerCompletionSweep moves confirmed bookings whose window has fully
// elapsed in their facility's local time to completed. Completion is
// otherwise lazy, so the sweep keeps ratings unblocked for players who never
// revisit the booking.
func registerCompletionSweep(database *db.DB, engine *booking.Engine) error {
	jobName := "booking_completion_sweep"
	cronExpr := "*/10 * * * *"
	jobLogger := log.With().
		Str("component", "booking_completion_sweep").
		Str("job_name", jobName).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		// Bookings dated tomorrow or later cannot have elapsed in any zone.
		horizon := time.Now().UTC().Add(24 * time.Hour).Format(booking.DateLayout)
		candidates, err := database.Queries.ListConfirmedBookingsThrough(ctx, horizon)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to load confirmed bookings for completion sweep")
			return
		}

		for _, candidate := range candidates {
			elapsed, err := bookingElapsed(ctx, database.Queries, candidate)
			if err != nil {
				jobLogger.Error().Err(err).Int64("booking_id", candidate.ID).Msg("Failed to resolve booking end time")
				continue
			}
			if !elapsed {
				continue
			}
			if _, err := engine.Complete(ctx, candidate.ID); err != nil {
				jobLogger.Error().Err(err).Int64("booking_id", candidate.ID).Msg("Failed to complete booking")
				continue
			}
			jobLogger.Info().Int64("booking_id", candidate.ID).Msg("Booking completed by sweep")
		}
	})
	return err
}

// registerReminderJob emails players roughly a day before check-in. The
// quarter-hour cadence and matching window keep each booking to one reminder.
func registerReminderJob(database *db.DB, notifier *email.Service) error {
	jobName := "booking_reminders"
	cronExpr := "*/15 * * * *"
	jobLogger := log.With().
		Str("component", "booking_reminders").
		Str("job_name", jobName).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if notifier == nil {
			jobLogger.Debug().Msg("Reminder job skipped: email not configured")
			return
		}

		facilities, err := database.Queries.ListFacilities(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to load facilities for reminder job")
			return
		}

		now := time.Now()
		for _, facility := range facilities {
			loc := time.Local
			if facility.Timezone != "" {
				if loaded, loadErr := time.LoadLocation(facility.Timezone); loadErr == nil {
					loc = loaded
				} else {
					jobLogger.Error().Err(loadErr).Int64("facility_id", facility.ID).Msg("Invalid facility timezone, using local")
				}
			}

			target := now.In(loc).Add(reminderLeadTime)
			date := target.Format(booking.DateLayout)
			windowStart := booking.MinuteOfDay(target)
			windowEnd := windowStart + int64(reminderJobWindow/time.Minute)

			items, err := database.Queries.ListFacilityBookings(ctx, db.ListFacilityBookingsParams{
				FacilityID:  facility.ID,
				CheckinDate: date,
			})
			if err != nil {
				jobLogger.Error().Err(err).Int64("facility_id", facility.ID).Msg("Failed to load bookings for reminder job")
				continue
			}

			for _, item := range items {
				if booking.Status(item.Status) != booking.StatusConfirmed {
					continue
				}
				if item.StartMinutes < windowStart || item.StartMinutes >= windowEnd {
					continue
				}
				notifier.SendBookingReminder(ctx, item)
				jobLogger.Info().Int64("booking_id", item.ID).Msg("Booking reminder sent")
			}
		}
	})
	return err
}

func bookingElapsed(ctx context.Context, queries *db.Queries, b db.Booking) (bool, error) {
	facilityID, err := queries.GetBookingFacilityID(ctx, b.ID)
	if err != nil {
		return false, err
	}
	facility, err := queries.GetFacilityByID(ctx, facilityID)
	if err != nil {
		return false, err
	}

	loc := time.Local
	if facility.Timezone != "" {
		if loaded, loadErr := time.LoadLocation(facility.Timezone); loadErr == nil {
			loc = loaded
		}
	}
	end, err := booking.CheckinTime(b.CheckinDate, b.EndMinutes, loc)
	if err != nil {
		return false, err
	}
	return time.Now().After(end), nil
}
