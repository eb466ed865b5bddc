// internal/db/queries.go
package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside
// or outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type CreateFacilityParams struct {
	Name                string
	Location            string
	OpenTime            string
	CloseTime           string
	SlotDurationMinutes int64
	Timezone            string
	OwnerUserID         string
	Status              string
}

const createFacility = `
INSERT INTO facilities (name, location, open_time, close_time, slot_duration_minutes, timezone, owner_user_id, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, name, location, open_time, close_time, slot_duration_minutes, timezone, owner_user_id, status, created_at
`

func (q *Queries) CreateFacility(ctx context.Context, arg CreateFacilityParams) (Facility, error) {
	row := q.db.QueryRowContext(ctx, createFacility,
		arg.Name, arg.Location, arg.OpenTime, arg.CloseTime, arg.SlotDurationMinutes, arg.Timezone, arg.OwnerUserID, arg.Status)
	var f Facility
	err := row.Scan(&f.ID, &f.Name, &f.Location, &f.OpenTime, &f.CloseTime, &f.SlotDurationMinutes, &f.Timezone, &f.OwnerUserID, &f.Status, &f.CreatedAt)
	return f, err
}

const getFacilityByID = `
SELECT id, name, location, open_time, close_time, slot_duration_minutes, timezone, owner_user_id, status, created_at
FROM facilities
WHERE id = ?
`

func (q *Queries) GetFacilityByID(ctx context.Context, id int64) (Facility, error) {
	row := q.db.QueryRowContext(ctx, getFacilityByID, id)
	var f Facility
	err := row.Scan(&f.ID, &f.Name, &f.Location, &f.OpenTime, &f.CloseTime, &f.SlotDurationMinutes, &f.Timezone, &f.OwnerUserID, &f.Status, &f.CreatedAt)
	return f, err
}

const listFacilities = `
SELECT id, name, location, open_time, close_time, slot_duration_minutes, timezone, owner_user_id, status, created_at
FROM facilities
ORDER BY id
`

func (q *Queries) ListFacilities(ctx context.Context) ([]Facility, error) {
	rows, err := q.db.QueryContext(ctx, listFacilities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Facility
	for rows.Next() {
		var f Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Location, &f.OpenTime, &f.CloseTime, &f.SlotDurationMinutes, &f.Timezone, &f.OwnerUserID, &f.Status, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

const facilityExists = `SELECT COUNT(*) FROM facilities WHERE id = ?`

func (q *Queries) FacilityExists(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, facilityExists, id).Scan(&count)
	return count, err
}

type CreateCourtParams struct {
	FacilityID   int64
	Name         string
	Category     string
	PricePerHour sql.NullInt64
	Status       string
}

const createCourt = `
INSERT INTO courts (facility_id, name, category, price_per_hour, status)
VALUES (?, ?, ?, ?, ?)
RETURNING id, facility_id, name, category, price_per_hour, status, created_at
`

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, createCourt, arg.FacilityID, arg.Name, arg.Category, arg.PricePerHour, arg.Status)
	var c Court
	err := row.Scan(&c.ID, &c.FacilityID, &c.Name, &c.Category, &c.PricePerHour, &c.Status, &c.CreatedAt)
	return c, err
}

const getCourtByID = `
SELECT id, facility_id, name, category, price_per_hour, status, created_at
FROM courts
WHERE id = ?
`

func (q *Queries) GetCourtByID(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx, getCourtByID, id)
	var c Court
	err := row.Scan(&c.ID, &c.FacilityID, &c.Name, &c.Category, &c.PricePerHour, &c.Status, &c.CreatedAt)
	return c, err
}

const listCourts = `
SELECT id, facility_id, name, category, price_per_hour, status, created_at
FROM courts
WHERE facility_id = ?
ORDER BY id
`

func (q *Queries) ListCourts(ctx context.Context, facilityID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourts, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.FacilityID, &c.Name, &c.Category, &c.PricePerHour, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

type CreateTimeSlotParams struct {
	FacilityID      int64
	SlotDate        string
	StartMinutes    int64
	EndMinutes      int64
	DiscountPercent int64
	Status          string
}

const createTimeSlot = `
INSERT INTO time_slots (facility_id, slot_date, start_minutes, end_minutes, discount_percent, status)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, facility_id, slot_date, start_minutes, end_minutes, discount_percent, status
`

func (q *Queries) CreateTimeSlot(ctx context.Context, arg CreateTimeSlotParams) (TimeSlot, error) {
	row := q.db.QueryRowContext(ctx, createTimeSlot,
		arg.FacilityID, arg.SlotDate, arg.StartMinutes, arg.EndMinutes, arg.DiscountPercent, arg.Status)
	var ts TimeSlot
	err := row.Scan(&ts.ID, &ts.FacilityID, &ts.SlotDate, &ts.StartMinutes, &ts.EndMinutes, &ts.DiscountPercent, &ts.Status)
	return ts, err
}

type ListActiveTimeSlotsParams struct {
	FacilityID int64
	SlotDate   string
}

const listActiveTimeSlots = `
SELECT id, facility_id, slot_date, start_minutes, end_minutes, discount_percent, status
FROM time_slots
WHERE facility_id = ? AND slot_date = ? AND status = 'active'
ORDER BY start_minutes
`

func (q *Queries) ListActiveTimeSlots(ctx context.Context, arg ListActiveTimeSlotsParams) ([]TimeSlot, error) {
	rows, err := q.db.QueryContext(ctx, listActiveTimeSlots, arg.FacilityID, arg.SlotDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TimeSlot
	for rows.Next() {
		var ts TimeSlot
		if err := rows.Scan(&ts.ID, &ts.FacilityID, &ts.SlotDate, &ts.StartMinutes, &ts.EndMinutes, &ts.DiscountPercent, &ts.Status); err != nil {
			return nil, err
		}
		items = append(items, ts)
	}
	return items, rows.Err()
}

type CreateBookingParams struct {
	CheckinDate  string
	StartMinutes int64
	EndMinutes   int64
	TotalPrice   int64
	Status       string
	PlayerUserID string
	PlayerEmail  string
}

const createBooking = `
INSERT INTO bookings (checkin_date, start_minutes, end_minutes, total_price, status, player_user_id, player_email)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, checkin_date, start_minutes, end_minutes, total_price, status, player_user_id, player_email, created_at
`

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, createBooking,
		arg.CheckinDate, arg.StartMinutes, arg.EndMinutes, arg.TotalPrice, arg.Status, arg.PlayerUserID, arg.PlayerEmail)
	var b Booking
	err := row.Scan(&b.ID, &b.CheckinDate, &b.StartMinutes, &b.EndMinutes, &b.TotalPrice, &b.Status, &b.PlayerUserID, &b.PlayerEmail, &b.CreatedAt)
	return b, err
}

const getBookingByID = `
SELECT id, checkin_date, start_minutes, end_minutes, total_price, status, player_user_id, player_email, created_at
FROM bookings
WHERE id = ?
`

func (q *Queries) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx, getBookingByID, id)
	var b Booking
	err := row.Scan(&b.ID, &b.CheckinDate, &b.StartMinutes, &b.EndMinutes, &b.TotalPrice, &b.Status, &b.PlayerUserID, &b.PlayerEmail, &b.CreatedAt)
	return b, err
}

type UpdateBookingStatusParams struct {
	ID     int64
	Status string
}

const updateBookingStatus = `UPDATE bookings SET status = ? WHERE id = ?`

func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBookingStatus, arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type AddBookingDetailParams struct {
	BookingID    int64
	CourtID      int64
	CheckinDate  string
	StartMinutes int64
	EndMinutes   int64
	Price        int64
}

const addBookingDetail = `
INSERT INTO booking_details (booking_id, court_id, checkin_date, start_minutes, end_minutes, price, active)
VALUES (?, ?, ?, ?, ?, ?, 1)
`

func (q *Queries) AddBookingDetail(ctx context.Context, arg AddBookingDetailParams) error {
	_, err := q.db.ExecContext(ctx, addBookingDetail,
		arg.BookingID, arg.CourtID, arg.CheckinDate, arg.StartMinutes, arg.EndMinutes, arg.Price)
	return err
}

const listBookingDetails = `
SELECT id, booking_id, court_id, checkin_date, start_minutes, end_minutes, price, active
FROM booking_details
WHERE booking_id = ?
ORDER BY id
`

func (q *Queries) ListBookingDetails(ctx context.Context, bookingID int64) ([]BookingDetail, error) {
	rows, err := q.db.QueryContext(ctx, listBookingDetails, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BookingDetail
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.ID, &d.BookingID, &d.CourtID, &d.CheckinDate, &d.StartMinutes, &d.EndMinutes, &d.Price, &d.Active); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const deactivateBookingDetails = `UPDATE booking_details SET active = 0 WHERE booking_id = ?`

// DeactivateBookingDetails releases a cancelled booking's slot claims so the
// uniqueness index no longer reserves them.
func (q *Queries) DeactivateBookingDetails(ctx context.Context, bookingID int64) error {
	_, err := q.db.ExecContext(ctx, deactivateBookingDetails, bookingID)
	return err
}

type ListConflictingBookingsParams struct {
	CourtID      int64
	CheckinDate  string
	StartMinutes int64
	EndMinutes   int64
}

type ConflictingBookingRow struct {
	BookingID    int64
	StartMinutes int64
	EndMinutes   int64
	Status       string
}

const listConflictingBookings = `
SELECT b.id, bd.start_minutes, bd.end_minutes, b.status
FROM booking_details bd
JOIN bookings b ON b.id = bd.booking_id
WHERE bd.court_id = ?
  AND bd.checkin_date = ?
  AND bd.active = 1
  AND b.status IN ('pending', 'confirmed', 'completed')
  AND bd.start_minutes < ?
  AND ? < bd.end_minutes
ORDER BY bd.start_minutes
`

func (q *Queries) ListConflictingBookings(ctx context.Context, arg ListConflictingBookingsParams) ([]ConflictingBookingRow, error) {
	rows, err := q.db.QueryContext(ctx, listConflictingBookings,
		arg.CourtID, arg.CheckinDate, arg.EndMinutes, arg.StartMinutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ConflictingBookingRow
	for rows.Next() {
		var row ConflictingBookingRow
		if err := rows.Scan(&row.BookingID, &row.StartMinutes, &row.EndMinutes, &row.Status); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const getBookingFacilityID = `
SELECT c.facility_id
FROM booking_details bd
JOIN courts c ON c.id = bd.court_id
WHERE bd.booking_id = ?
LIMIT 1
`

func (q *Queries) GetBookingFacilityID(ctx context.Context, bookingID int64) (int64, error) {
	var facilityID int64
	err := q.db.QueryRowContext(ctx, getBookingFacilityID, bookingID).Scan(&facilityID)
	return facilityID, err
}

const listConfirmedBookingsThrough = `
SELECT id, checkin_date, start_minutes, end_minutes, total_price, status, player_user_id, player_email, created_at
FROM bookings
WHERE status = 'confirmed' AND checkin_date <= ?
ORDER BY checkin_date, start_minutes
`

func (q *Queries) ListConfirmedBookingsThrough(ctx context.Context, checkinDate string) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmedBookingsThrough, checkinDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.CheckinDate, &b.StartMinutes, &b.EndMinutes, &b.TotalPrice, &b.Status, &b.PlayerUserID, &b.PlayerEmail, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const listConfirmedBookingsForDate = `
SELECT id, checkin_date, start_minutes, end_minutes, total_price, status, player_user_id, player_email, created_at
FROM bookings
WHERE status = 'confirmed' AND checkin_date = ?
ORDER BY start_minutes
`

func (q *Queries) ListConfirmedBookingsForDate(ctx context.Context, checkinDate string) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmedBookingsForDate, checkinDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.CheckinDate, &b.StartMinutes, &b.EndMinutes, &b.TotalPrice, &b.Status, &b.PlayerUserID, &b.PlayerEmail, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

type ListFacilityBookingsParams struct {
	FacilityID  int64
	CheckinDate string
}

const listFacilityBookings = `
SELECT DISTINCT b.id, b.checkin_date, b.start_minutes, b.end_minutes, b.total_price, b.status, b.player_user_id, b.player_email, b.created_at
FROM bookings b
JOIN booking_details bd ON bd.booking_id = b.id
JOIN courts c ON c.id = bd.court_id
WHERE c.facility_id = ? AND b.checkin_date = ?
ORDER BY b.start_minutes, b.id
`

func (q *Queries) ListFacilityBookings(ctx context.Context, arg ListFacilityBookingsParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listFacilityBookings, arg.FacilityID, arg.CheckinDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.CheckinDate, &b.StartMinutes, &b.EndMinutes, &b.TotalPrice, &b.Status, &b.PlayerUserID, &b.PlayerEmail, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

type CreateRatingParams struct {
	BookingID int64
	Stars     int64
	Comment   string
}

const createRating = `
INSERT INTO ratings (booking_id, stars, comment)
VALUES (?, ?, ?)
RETURNING id, booking_id, stars, comment, created_at
`

func (q *Queries) CreateRating(ctx context.Context, arg CreateRatingParams) (Rating, error) {
	row := q.db.QueryRowContext(ctx, createRating, arg.BookingID, arg.Stars, arg.Comment)
	var r Rating
	err := row.Scan(&r.ID, &r.BookingID, &r.Stars, &r.Comment, &r.CreatedAt)
	return r, err
}

const listFacilityRatingStars = `
SELECT r.stars
FROM ratings r
WHERE r.booking_id IN (
    SELECT DISTINCT bd.booking_id
    FROM booking_details bd
    JOIN courts c ON c.id = bd.court_id
    WHERE c.facility_id = ?
)
`

func (q *Queries) ListFacilityRatingStars(ctx context.Context, facilityID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listFacilityRatingStars, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var stars int64
		if err := rows.Scan(&stars); err != nil {
			return nil, err
		}
		items = append(items, stars)
	}
	return items, rows.Err()
}

type UpsertSettledPaymentParams struct {
	BookingID int64
	Reference string
	Amount    int64
}

const upsertSettledPayment = `
INSERT INTO payments (booking_id, reference, amount, status, settled_at)
VALUES (?, ?, ?, 'settled', CURRENT_TIMESTAMP)
RETURNING id, booking_id, reference, amount, status, settled_at
`

func (q *Queries) UpsertSettledPayment(ctx context.Context, arg UpsertSettledPaymentParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, upsertSettledPayment, arg.BookingID, arg.Reference, arg.Amount)
	var p Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.Reference, &p.Amount, &p.Status, &p.SettledAt)
	return p, err
}

const getPaymentByBookingID = `
SELECT id, booking_id, reference, amount, status, settled_at
FROM payments
WHERE booking_id = ?
ORDER BY id DESC
LIMIT 1
`

func (q *Queries) GetPaymentByBookingID(ctx context.Context, bookingID int64) (Payment, error) {
	row := q.db.QueryRowContext(ctx, getPaymentByBookingID, bookingID)
	var p Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.Reference, &p.Amount, &p.Status, &p.SettledAt)
	return p, err
}
