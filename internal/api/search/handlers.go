// internal/api/search/handlers.go

// Package search serves the player-facing facility catalog: each listing
// carries the aggregate star rating and the cheapest advertised court price
// so results can be ranked client side.
package search

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/api/apiutil"
	appdb "github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/rating"
)

var (
	queries     *appdb.Queries
	queriesOnce sync.Once
)

const searchQueryTimeout = 5 * time.Second

type facilityListing struct {
	Facility      appdb.Facility `json:"facility"`
	AverageRating float64        `json:"average_rating"`
	RatingCount   int            `json:"rating_count"`
	MinPrice      int64          `json:"min_price"`
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

// GET /api/v1/facilities/search?category=indoor,outdoor
func HandleFacilitySearch(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	categories := splitCategories(r.URL.Query().Get("category"))

	ctx, cancel := context.WithTimeout(r.Context(), searchQueryTimeout)
	defer cancel()

	facilities, err := q.ListFacilities(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list facilities")
		http.Error(w, "Failed to list facilities", http.StatusInternalServerError)
		return
	}

	listings := make([]facilityListing, 0, len(facilities))
	for _, facility := range facilities {
		stars, err := q.ListFacilityRatingStars(ctx, facility.ID)
		if err != nil {
			logger.Error().Err(err).Int64("facility_id", facility.ID).Msg("Failed to load ratings")
			http.Error(w, "Failed to load ratings", http.StatusInternalServerError)
			return
		}
		courts, err := q.ListCourts(ctx, facility.ID)
		if err != nil {
			logger.Error().Err(err).Int64("facility_id", facility.ID).Msg("Failed to load courts")
			http.Error(w, "Failed to load courts", http.StatusInternalServerError)
			return
		}

		listings = append(listings, facilityListing{
			Facility:      facility,
			AverageRating: rating.Average(stars),
			RatingCount:   len(stars),
			MinPrice:      rating.MinAdvertisedPrice(courts, categories),
		})
	}

	apiutil.WriteJSON(w, http.StatusOK, listings)
}

// GET /api/v1/facilities/{id}/rating
func HandleFacilityRating(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	facilityID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid facility ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchQueryTimeout)
	defer cancel()

	if _, err := q.GetFacilityByID(ctx, facilityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Facility not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to load facility")
		http.Error(w, "Failed to load facility", http.StatusInternalServerError)
		return
	}

	stars, err := q.ListFacilityRatingStars(ctx, facilityID)
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to load ratings")
		http.Error(w, "Failed to load ratings", http.StatusInternalServerError)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"facility_id":    facilityID,
		"average_rating": rating.Average(stars),
		"rating_count":   len(stars),
	})
}

func splitCategories(raw string) []string {
	var categories []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			categories = append(categories, trimmed)
		}
	}
	return categories
}

func loadQueries() *appdb.Queries {
	return queries
}
