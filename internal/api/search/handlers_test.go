// internal/api/search/handlers_test.go
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	appdb "github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/testutil"
)

func TestHandleFacilitySearch(t *testing.T) {
	database := testutil.NewTestDB(t)
	facility := testutil.SeedFacility(t, database)
	court := testutil.SeedCourt(t, database, facility.ID)
	ctx := context.Background()

	if _, err := database.Queries.CreateCourt(ctx, appdb.CreateCourtParams{
		FacilityID:   facility.ID,
		Name:         "Court 2",
		Category:     "outdoor",
		PricePerHour: testutil.NullInt64(60000),
		Status:       "active",
	}); err != nil {
		t.Fatalf("create court: %v", err)
	}

	// Two rated bookings: 5 and 4 stars.
	for i, stars := range []int64{5, 4} {
		booking, err := database.Queries.CreateBooking(ctx, appdb.CreateBookingParams{
			CheckinDate:  "2027-05-10",
			StartMinutes: int64(600 + i*60),
			EndMinutes:   int64(660 + i*60),
			TotalPrice:   120000,
			Status:       "completed",
			PlayerUserID: "player-1",
		})
		if err != nil {
			t.Fatalf("create booking: %v", err)
		}
		if err := database.Queries.AddBookingDetail(ctx, appdb.AddBookingDetailParams{
			BookingID:    booking.ID,
			CourtID:      court.ID,
			CheckinDate:  booking.CheckinDate,
			StartMinutes: booking.StartMinutes,
			EndMinutes:   booking.EndMinutes,
			Price:        120000,
		}); err != nil {
			t.Fatalf("add booking detail: %v", err)
		}
		if _, err := database.Queries.CreateRating(ctx, appdb.CreateRatingParams{
			BookingID: booking.ID,
			Stars:     stars,
			Comment:   "solid",
		}); err != nil {
			t.Fatalf("create rating: %v", err)
		}
	}

	InitHandlers(database.Queries)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities/search", nil)
	recorder := httptest.NewRecorder()

	HandleFacilitySearch(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", recorder.Code, recorder.Body.String())
	}

	var listings []struct {
		Facility      appdb.Facility `json:"facility"`
		AverageRating float64        `json:"average_rating"`
		RatingCount   int            `json:"rating_count"`
		MinPrice      int64          `json:"min_price"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &listings); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	listing := listings[0]
	if listing.AverageRating != 4.5 {
		t.Errorf("average rating = %v, want 4.5", listing.AverageRating)
	}
	if listing.RatingCount != 2 {
		t.Errorf("rating count = %d, want 2", listing.RatingCount)
	}
	if listing.MinPrice != 60000 {
		t.Errorf("min price = %d, want 60000", listing.MinPrice)
	}

	// Category filter narrows the advertised price.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/facilities/search?category=indoor", nil)
	recorder = httptest.NewRecorder()

	HandleFacilitySearch(recorder, req)

	if err := json.Unmarshal(recorder.Body.Bytes(), &listings); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if listings[0].MinPrice != 120000 {
		t.Errorf("indoor min price = %d, want 120000", listings[0].MinPrice)
	}

	// Per-facility aggregate endpoint sees the same ratings.
	facilityPath := "/api/v1/facilities/" + strconv.FormatInt(facility.ID, 10) + "/rating"
	req = httptest.NewRequest(http.MethodGet, facilityPath, nil)
	req.SetPathValue("id", strconv.FormatInt(facility.ID, 10))
	recorder = httptest.NewRecorder()

	HandleFacilityRating(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected rating status: %d, body: %s", recorder.Code, recorder.Body.String())
	}
	var aggregate struct {
		FacilityID    int64   `json:"facility_id"`
		AverageRating float64 `json:"average_rating"`
		RatingCount   int     `json:"rating_count"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &aggregate); err != nil {
		t.Fatalf("decode rating response: %v", err)
	}
	if aggregate.AverageRating != 4.5 || aggregate.RatingCount != 2 {
		t.Errorf("aggregate = %+v, want average 4.5 with 2 ratings", aggregate)
	}

	// Unknown facility is a 404, not an empty aggregate.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/facilities/999/rating", nil)
	req.SetPathValue("id", "999")
	recorder = httptest.NewRecorder()

	HandleFacilityRating(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("missing facility status = %d, want %d", recorder.Code, http.StatusNotFound)
	}
}
