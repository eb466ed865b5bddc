// internal/db/models.go
package db

import (
	"database/sql"
	"time"
)

type Facility struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Location            string    `json:"location"`
	OpenTime            string    `json:"open_time"`
	CloseTime           string    `json:"close_time"`
	SlotDurationMinutes int64     `json:"slot_duration_minutes"`
	Timezone            string    `json:"timezone"`
	OwnerUserID         string    `json:"owner_user_id"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

type Court struct {
	ID           int64         `json:"id"`
	FacilityID   int64         `json:"facility_id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	PricePerHour sql.NullInt64 `json:"price_per_hour"`
	Status       string        `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// TimeSlot is a facility-defined override window; it adjusts pricing for
// the generated slot it covers but never changes the slot grid itself.
type TimeSlot struct {
	ID              int64  `json:"id"`
	FacilityID      int64  `json:"facility_id"`
	SlotDate        string `json:"slot_date"`
	StartMinutes    int64  `json:"start_minutes"`
	EndMinutes      int64  `json:"end_minutes"`
	DiscountPercent int64  `json:"discount_percent"`
	Status          string `json:"status"`
}

type Booking struct {
	ID           int64     `json:"id"`
	CheckinDate  string    `json:"checkin_date"`
	StartMinutes int64     `json:"start_minutes"`
	EndMinutes   int64     `json:"end_minutes"`
	TotalPrice   int64     `json:"total_price"`
	Status       string    `json:"status"`
	PlayerUserID string    `json:"player_user_id"`
	PlayerEmail  string    `json:"player_email"`
	CreatedAt    time.Time `json:"created_at"`
}

// BookingDetail is the per-court line of a booking. Date and window are
// denormalized from the booking so the slot uniqueness index can live here.
type BookingDetail struct {
	ID           int64  `json:"id"`
	BookingID    int64  `json:"booking_id"`
	CourtID      int64  `json:"court_id"`
	CheckinDate  string `json:"checkin_date"`
	StartMinutes int64  `json:"start_minutes"`
	EndMinutes   int64  `json:"end_minutes"`
	Price        int64  `json:"price"`
	Active       bool   `json:"active"`
}

type Rating struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	Stars     int64     `json:"stars"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Payment struct {
	ID        int64        `json:"id"`
	BookingID int64        `json:"booking_id"`
	Reference string       `json:"reference"`
	Amount    int64        `json:"amount"`
	Status    string       `json:"status"`
	SettledAt sql.NullTime `json:"settled_at"`
}
