// internal/api/facilities/handlers_test.go
package facilities

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appdb "github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/testutil"
)

func TestFacilityHandlers(t *testing.T) {
	database := testutil.NewTestDB(t)
	InitHandlers(database.Queries)

	var facilityID int64

	t.Run("create facility", func(t *testing.T) {
		body := `{
			"name": "Riverside Badminton Center",
			"location": "12 Riverside Way",
			"openTime": "08:00",
			"closeTime": "22:00",
			"slotDurationMinutes": 60,
			"timezone": "UTC",
			"ownerUserId": "owner-1"
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities", strings.NewReader(body))
		recorder := httptest.NewRecorder()

		HandleFacilityCreate(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("unexpected status: %d, body: %s", recorder.Code, recorder.Body.String())
		}
		var facility appdb.Facility
		if err := json.Unmarshal(recorder.Body.Bytes(), &facility); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if facility.ID == 0 || facility.Name != "Riverside Badminton Center" {
			t.Fatalf("unexpected facility: %+v", facility)
		}
		facilityID = facility.ID
	})

	t.Run("create facility rejects bad operating window", func(t *testing.T) {
		body := `{
			"name": "Backwards Hours",
			"openTime": "22:00",
			"closeTime": "08:00",
			"slotDurationMinutes": 60,
			"ownerUserId": "owner-1"
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities", strings.NewReader(body))
		recorder := httptest.NewRecorder()

		HandleFacilityCreate(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("create court", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities/1/courts",
			strings.NewReader(`{"name": "Court 1", "category": "indoor", "pricePerHour": 120000}`))
		req.SetPathValue("id", "1")
		recorder := httptest.NewRecorder()

		HandleCourtCreate(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("unexpected status: %d, body: %s", recorder.Code, recorder.Body.String())
		}
	})

	t.Run("create court for missing facility", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities/999/courts",
			strings.NewReader(`{"name": "Court 1"}`))
		req.SetPathValue("id", "999")
		recorder := httptest.NewRecorder()

		HandleCourtCreate(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
	})

	t.Run("list generated slots", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities/1/slots?date=2027-05-10", nil)
		req.SetPathValue("id", "1")
		recorder := httptest.NewRecorder()

		HandleSlotList(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d, body: %s", recorder.Code, recorder.Body.String())
		}
		var payload struct {
			FacilityID int64 `json:"facility_id"`
			Slots      []struct {
				StartMinutes    int64 `json:"start_minutes"`
				EndMinutes      int64 `json:"end_minutes"`
				DiscountPercent int64 `json:"discount_percent"`
			} `json:"slots"`
		}
		if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if payload.FacilityID != facilityID {
			t.Errorf("facility_id = %d, want %d", payload.FacilityID, facilityID)
		}
		if len(payload.Slots) != 14 {
			t.Fatalf("expected 14 slots, got %d", len(payload.Slots))
		}
	})

	t.Run("list slots rejects malformed date", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities/1/slots?date=today", nil)
		req.SetPathValue("id", "1")
		recorder := httptest.NewRecorder()

		HandleSlotList(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("discounted override shows in grid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities/1/time-slots",
			strings.NewReader(`{"slotDate": "2027-05-11", "startTime": "10:00", "endTime": "12:00", "discountPercent": 25}`))
		req.SetPathValue("id", "1")
		recorder := httptest.NewRecorder()

		HandleTimeSlotCreate(recorder, req)
		if recorder.Code != http.StatusCreated {
			t.Fatalf("unexpected status: %d, body: %s", recorder.Code, recorder.Body.String())
		}

		req = httptest.NewRequest(http.MethodGet, "/api/v1/facilities/1/slots?date=2027-05-11", nil)
		req.SetPathValue("id", "1")
		recorder = httptest.NewRecorder()

		HandleSlotList(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", recorder.Code)
		}
		var payload struct {
			Slots []struct {
				StartMinutes    int64 `json:"start_minutes"`
				DiscountPercent int64 `json:"discount_percent"`
			} `json:"slots"`
		}
		if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		discounted := 0
		for _, slot := range payload.Slots {
			if slot.DiscountPercent == 25 {
				discounted++
			}
		}
		if discounted != 2 {
			t.Errorf("expected 2 discounted slots, got %d", discounted)
		}
	})
}
