package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/booking"
	"github.com/courtlyhq/courtly/internal/db"
)

// Service builds and sends the booking lifecycle emails. Delivery is best
// effort: a send failure is logged and never fails the booking operation
// that triggered it.
type Service struct {
	sender Sender
}

func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

func (s *Service) SendBookingConfirmation(ctx context.Context, b db.Booking) {
	subject := fmt.Sprintf("Booking #%d confirmed", b.ID)
	body := fmt.Sprintf(
		"Your court booking is confirmed.\n\nDate: %s\nTime: %s - %s\nTotal: %s\n\nSee you on the court!",
		b.CheckinDate,
		booking.FormatClock(b.StartMinutes),
		booking.FormatClock(b.EndMinutes),
		formatPrice(b.TotalPrice),
	)
	s.send(ctx, b, subject, body)
}

func (s *Service) SendBookingCancellation(ctx context.Context, b db.Booking) {
	subject := fmt.Sprintf("Booking #%d cancelled", b.ID)
	body := fmt.Sprintf(
		"Your court booking for %s at %s has been cancelled.\n\nIf you did not request this, contact the facility.",
		b.CheckinDate,
		booking.FormatClock(b.StartMinutes),
	)
	s.send(ctx, b, subject, body)
}

func (s *Service) SendBookingReminder(ctx context.Context, b db.Booking) {
	subject := fmt.Sprintf("Reminder: booking #%d is tomorrow", b.ID)
	body := fmt.Sprintf(
		"A reminder about your upcoming court booking.\n\nDate: %s\nTime: %s - %s",
		b.CheckinDate,
		booking.FormatClock(b.StartMinutes),
		booking.FormatClock(b.EndMinutes),
	)
	s.send(ctx, b, subject, body)
}

func (s *Service) send(ctx context.Context, b db.Booking, subject, body string) {
	if s == nil || s.sender == nil {
		return
	}
	if b.PlayerEmail == "" {
		log.Ctx(ctx).Debug().Int64("booking_id", b.ID).Msg("No player email on booking, skipping notification")
		return
	}
	if err := s.sender.Send(ctx, b.PlayerEmail, subject, body); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("booking_id", b.ID).Msg("Failed to send booking email")
	}
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
