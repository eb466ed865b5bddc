// internal/events/events.go

// Package events defines the closed set of notification payloads pushed to
// connected clients. Booking events are facility-scoped; comment events are
// broadcast globally and filtered client-side.
package events

// Kind names match the client-side handler names.
const (
	KindBookingCreated   = "BookingCreated"
	KindBookingUpdated   = "BookingUpdated"
	KindBookingCompleted = "BookingCompleted"
	KindBookingCancelled = "BookingCancelled"

	KindReceiveBookingUpdate = "ReceiveBookingUpdate"
	KindCommentNotification  = "CommentNotification"
)

// BookingEvent carries enough data for a client to update its calendar view
// without a follow-up read. It is addressed to the facility group and to the
// booking player's user group.
type BookingEvent struct {
	Kind         string  `json:"kind"`
	BookingID    int64   `json:"booking_id"`
	FacilityID   int64   `json:"facility_id"`
	CourtIDs     []int64 `json:"court_ids"`
	CheckinDate  string  `json:"checkin_date"`
	StartMinutes int64   `json:"start_minutes"`
	EndMinutes   int64   `json:"end_minutes"`
	Status       string  `json:"status"`
	PlayerUserID string  `json:"player_user_id"`
}

// CommentEvent is delivered to every live connection; target filtering is
// left to the receiving client.
type CommentEvent struct {
	Kind       string `json:"kind"`
	FacilityID int64  `json:"facility_id"`
	AuthorID   string `json:"author_id"`
	Message    string `json:"message"`
}

// Relay is an opaque client-to-clients payload forwarded verbatim through
// the hub (SendBookingUpdate -> ReceiveBookingUpdate).
type Relay struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}
