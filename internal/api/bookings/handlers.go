// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/api/apiutil"
	"github.com/courtlyhq/courtly/internal/booking"
	appdb "github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/email"
	"github.com/courtlyhq/courtly/internal/events"
	"github.com/courtlyhq/courtly/internal/fanout"
	"github.com/courtlyhq/courtly/internal/ratelimit"
)

var (
	engine      *booking.Engine
	queries     *appdb.Queries
	notifier    *email.Service
	limiter     *ratelimit.Limiter
	registry    *fanout.Registry
	handlerOnce sync.Once
)

const bookingQueryTimeout = 5 * time.Second

type bookingRequest struct {
	CourtIDs     []int64 `json:"courtIds"`
	CheckinDate  string  `json:"checkinDate"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	PlayerUserID string  `json:"playerUserId"`
	PlayerEmail  string  `json:"playerEmail"`
}

type confirmRequest struct {
	PaymentReference string `json:"paymentReference"`
}

type cancelRequest struct {
	Actor string `json:"actor"`
}

type ratingRequest struct {
	Stars   int64  `json:"stars"`
	Comment string `json:"comment"`
}

// InitHandlers must be called during server startup before handling requests.
// The notifier and rate limiter may be nil; email and throttling are then
// disabled.
func InitHandlers(e *booking.Engine, q *appdb.Queries, n *email.Service, l *ratelimit.Limiter, reg *fanout.Registry) {
	if e == nil || q == nil {
		return
	}
	handlerOnce.Do(func() {
		engine = e
		queries = q
		notifier = n
		limiter = l
		registry = reg
	})
}

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.CourtIDs) == 0 {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, "courtIds must not be empty", nil)
		return
	}

	if limiter != nil {
		ip := ratelimit.GetClientIP(r, false)
		if result := limiter.CheckCreate(req.PlayerUserID, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(req.PlayerUserID, ip, result.Reason)
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter/time.Second)+1))
			apiutil.WriteErrorJSON(w, http.StatusTooManyRequests, "too many booking attempts", nil)
			return
		}
		limiter.RecordCreate(req.PlayerUserID, ip)
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	created, err := engine.Create(ctx, booking.CreateRequest{
		CourtIDs:     req.CourtIDs,
		CheckinDate:  req.CheckinDate,
		Start:        req.StartTime,
		End:          req.EndTime,
		PlayerUserID: req.PlayerUserID,
		PlayerEmail:  req.PlayerEmail,
	})
	if err != nil {
		writeBookingError(w, r, err, "Failed to create booking")
		return
	}

	logger.Info().
		Int64("booking_id", created.ID).
		Str("checkin_date", created.CheckinDate).
		Msg("Booking created")
	apiutil.WriteJSON(w, http.StatusCreated, created)
}

// GET /api/v1/bookings/{id}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, err := q.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to load booking")
		http.Error(w, "Failed to load booking", http.StatusInternalServerError)
		return
	}

	details, err := q.ListBookingDetails(ctx, bookingID)
	if err != nil {
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to load booking details")
		http.Error(w, "Failed to load booking", http.StatusInternalServerError)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"booking": b,
		"details": details,
	})
}

// POST /api/v1/bookings/{id}/confirm
func HandleBookingConfirm(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req confirmRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PaymentReference) == "" {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, "paymentReference is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, err := engine.Confirm(ctx, bookingID, req.PaymentReference)
	if err != nil {
		writeBookingError(w, r, err, "Failed to confirm booking")
		return
	}

	logger.Info().Int64("booking_id", b.ID).Msg("Booking confirmed")
	if notifier != nil {
		notifier.SendBookingConfirmation(r.Context(), b)
	}
	apiutil.WriteJSON(w, http.StatusOK, b)
}

// POST /api/v1/bookings/{id}/cancel
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req cancelRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, err := engine.Cancel(ctx, bookingID, req.Actor)
	if err != nil {
		writeBookingError(w, r, err, "Failed to cancel booking")
		return
	}

	logger.Info().Int64("booking_id", b.ID).Str("actor", req.Actor).Msg("Booking cancelled")
	if notifier != nil {
		notifier.SendBookingCancellation(r.Context(), b)
	}
	apiutil.WriteJSON(w, http.StatusOK, b)
}

// POST /api/v1/bookings/{id}/complete
func HandleBookingComplete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, err := engine.Complete(ctx, bookingID)
	if err != nil {
		writeBookingError(w, r, err, "Failed to complete booking")
		return
	}

	logger.Info().Int64("booking_id", b.ID).Msg("Booking completed")
	apiutil.WriteJSON(w, http.StatusOK, b)
}

// POST /api/v1/bookings/{id}/rating
func HandleRatingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req ratingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Stars < 1 || req.Stars > 5 {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, "stars must be between 1 and 5", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, err := q.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to load booking")
		http.Error(w, "Failed to load booking", http.StatusInternalServerError)
		return
	}
	if booking.Status(b.Status) != booking.StatusCompleted {
		apiutil.WriteErrorJSON(w, http.StatusConflict, "only completed bookings can be rated", nil)
		return
	}

	rating, err := q.CreateRating(ctx, appdb.CreateRatingParams{
		BookingID: bookingID,
		Stars:     req.Stars,
		Comment:   req.Comment,
	})
	if err != nil {
		if appdb.IsUniqueViolation(err) {
			apiutil.WriteErrorJSON(w, http.StatusConflict, "booking is already rated", nil)
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to create rating")
		http.Error(w, "Failed to create rating", http.StatusInternalServerError)
		return
	}

	if registry != nil && req.Comment != "" {
		facilityID, ferr := q.GetBookingFacilityID(ctx, bookingID)
		if ferr != nil {
			logger.Warn().Err(ferr).Int64("booking_id", bookingID).Msg("Skipping comment notification")
		} else {
			registry.BroadcastCommentEvent(events.CommentEvent{
				FacilityID: facilityID,
				AuthorID:   b.PlayerUserID,
				Message:    req.Comment,
			})
		}
	}

	logger.Info().Int64("booking_id", bookingID).Int64("stars", req.Stars).Msg("Rating recorded")
	apiutil.WriteJSON(w, http.StatusCreated, rating)
}

// GET /api/v1/facilities/{id}/bookings?date=YYYY-MM-DD
func HandleFacilityBookingList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	facilityID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := time.Parse(booking.DateLayout, date); err != nil {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, "date must be formatted as "+booking.DateLayout, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	items, err := q.ListFacilityBookings(ctx, appdb.ListFacilityBookingsParams{
		FacilityID:  facilityID,
		CheckinDate: date,
	})
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Str("date", date).Msg("Failed to list bookings")
		http.Error(w, "Failed to list bookings", http.StatusInternalServerError)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, items)
}

// writeBookingError maps engine errors onto response codes. Validation
// failures are 400, conflicts and illegal transitions are 409, missing rows
// are 404; anything else is logged as a server error.
func writeBookingError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := log.Ctx(r.Context())

	var unavailable booking.SlotUnavailableError
	var transition booking.TransitionError
	switch {
	case errors.Is(err, booking.ErrInvalidWindow), errors.Is(err, booking.ErrInvalidConfiguration):
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &unavailable):
		apiutil.WriteErrorJSON(w, http.StatusConflict, "requested window is unavailable", map[string]any{
			"court_id":    unavailable.CourtID,
			"booking_ids": unavailable.BookingIDs,
		})
	case errors.As(err, &transition):
		apiutil.WriteErrorJSON(w, http.StatusConflict, transition.Error(), nil)
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "Booking not found", http.StatusNotFound)
	default:
		logger.Error().Err(err).Msg(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

func loadQueries() *appdb.Queries {
	return queries
}
