// internal/api/facilities/handlers.go
package facilities

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
)

var (
	queries     *appdb.Queries
	queriesOnce sync.Once
)

const (
	facilityQueryTimeout = 5 * time.Second
	dateQueryKey         = "date"
)

type facilityRequest struct {
	Name                string `json:"name"`
	Location            string `json:"location"`
	OpenTime            string `json:"openTime"`
	CloseTime           string `json:"closeTime"`
	SlotDurationMinutes int64  `json:"slotDurationMinutes"`
	Timezone            string `json:"timezone"`
	OwnerUserID         string `json:"ownerUserId"`
}

type courtRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	PricePerHour *int64 `json:"pricePerHour"`
}

type timeSlotRequest struct {
	SlotDate        string `json:"slotDate"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DiscountPercent int64  `json:"discountPercent"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *appdb.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

// POST /api/v1/facilities
func HandleFacilityCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req facilityRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateFacilityRequest(req); err != nil {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	facility, err := q.CreateFacility(ctx, appdb.CreateFacilityParams{
		Name:                req.Name,
		Location:            req.Location,
		OpenTime:            req.OpenTime,
		CloseTime:           req.CloseTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		Timezone:            req.Timezone,
		OwnerUserID:         req.OwnerUserID,
		Status:              "active",
	})
	if err != nil {
		logger.Error().Err(err).Str("name", req.Name).Msg("Failed to create facility")
		http.Error(w, "Failed to create facility", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("facility_id", facility.ID).Msg("Facility created")
	apiutil.WriteJSON(w, http.StatusCreated, facility)
}

// GET /api/v1/facilities/{id}
func HandleFacilityGet(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	facility, err := q.GetFacilityByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Facility not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to load facility")
		http.Error(w, "Failed to load facility", http.StatusInternalServerError)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, facility)
}

// POST /api/v1/facilities/{id}/courts
func HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
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

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.PricePerHour != nil && *req.PricePerHour < 0 {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, "pricePerHour must not be negative", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	count, err := q.FacilityExists(ctx, facilityID)
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to validate facility")
		http.Error(w, "Failed to validate facility", http.StatusInternalServerError)
		return
	}
	if count == 0 {
		http.Error(w, "Facility not found", http.StatusNotFound)
		return
	}

	court, err := q.CreateCourt(ctx, appdb.CreateCourtParams{
		FacilityID:   facilityID,
		Name:         req.Name,
		Category:     req.Category,
		PricePerHour: apiutil.ToNullInt64(req.PricePerHour),
		Status:       "active",
	})
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to create court")
		http.Error(w, "Failed to create court", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("facility_id", facilityID).Int64("court_id", court.ID).Msg("Court created")
	apiutil.WriteJSON(w, http.StatusCreated, court)
}

// GET /api/v1/facilities/{id}/courts
func HandleCourtList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	courts, err := q.ListCourts(ctx, facilityID)
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to list courts")
		http.Error(w, "Failed to list courts", http.StatusInternalServerError)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, courts)
}

// POST /api/v1/facilities/{id}/time-slots
func HandleTimeSlotCreate(w http.ResponseWriter, r *http.Request) {
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

	var req timeSlotRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	startMinutes, endMinutes, err := parseOverrideWindow(req)
	if err != nil {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	count, err := q.FacilityExists(ctx, facilityID)
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to validate facility")
		http.Error(w, "Failed to validate facility", http.StatusInternalServerError)
		return
	}
	if count == 0 {
		http.Error(w, "Facility not found", http.StatusNotFound)
		return
	}

	slot, err := q.CreateTimeSlot(ctx, appdb.CreateTimeSlotParams{
		FacilityID:      facilityID,
		SlotDate:        req.SlotDate,
		StartMinutes:    startMinutes,
		EndMinutes:      endMinutes,
		DiscountPercent: req.DiscountPercent,
		Status:          "active",
	})
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to create time slot")
		http.Error(w, "Failed to create time slot", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("facility_id", facilityID).Int64("time_slot_id", slot.ID).Msg("Time slot override created")
	apiutil.WriteJSON(w, http.StatusCreated, slot)
}

// GET /api/v1/facilities/{id}/slots?date=YYYY-MM-DD
func HandleSlotList(w http.ResponseWriter, r *http.Request) {
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

	date := strings.TrimSpace(r.URL.Query().Get(dateQueryKey))
	if _, err := time.Parse(booking.DateLayout, date); err != nil {
		apiutil.WriteErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("%s must be formatted as %s", dateQueryKey, booking.DateLayout), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	facility, err := q.GetFacilityByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Facility not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to load facility")
		http.Error(w, "Failed to load facility", http.StatusInternalServerError)
		return
	}

	overrides, err := q.ListActiveTimeSlots(ctx, appdb.ListActiveTimeSlotsParams{FacilityID: facilityID, SlotDate: date})
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Str("date", date).Msg("Failed to load time slot overrides")
		http.Error(w, "Failed to load time slots", http.StatusInternalServerError)
		return
	}

	slots, err := booking.GenerateSlots(facility, overrides)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidConfiguration) {
			apiutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to generate slot grid")
		http.Error(w, "Failed to generate slots", http.StatusInternalServerError)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"facility_id": facilityID,
		"date":        date,
		"slots":       slots,
	})
}

func validateFacilityRequest(req facilityRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apiutil.FieldError{Field: "name", Reason: "is required"}
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return apiutil.FieldError{Field: "timezone", Reason: "is not a valid IANA zone"}
		}
	}
	return booking.ValidateFacilityConfig(appdb.Facility{
		OpenTime:            req.OpenTime,
		CloseTime:           req.CloseTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
	})
}

func parseOverrideWindow(req timeSlotRequest) (int64, int64, error) {
	if _, err := time.Parse(booking.DateLayout, req.SlotDate); err != nil {
		return 0, 0, apiutil.FieldError{Field: "slotDate", Reason: "must be formatted as " + booking.DateLayout}
	}
	startMinutes, err := booking.ParseClock(req.StartTime)
	if err != nil {
		return 0, 0, apiutil.FieldError{Field: "startTime", Reason: "must be formatted as HH:MM"}
	}
	endMinutes, err := booking.ParseClock(req.EndTime)
	if err != nil {
		return 0, 0, apiutil.FieldError{Field: "endTime", Reason: "must be formatted as HH:MM"}
	}
	if endMinutes <= startMinutes {
		return 0, 0, apiutil.FieldError{Field: "endTime", Reason: "must be after startTime"}
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return 0, 0, apiutil.FieldError{Field: "discountPercent", Reason: "must be between 0 and 100"}
	}
	return startMinutes, endMinutes, nil
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
