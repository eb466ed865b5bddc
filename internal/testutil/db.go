package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/courtlyhq/courtly/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedFacility inserts a facility with a 08:00-22:00 window and hour slots.
func SeedFacility(t *testing.T, database *db.DB) db.Facility {
	t.Helper()

	facility, err := database.Queries.CreateFacility(context.Background(), db.CreateFacilityParams{
		Name:                "Riverside Badminton Center",
		Location:            "12 Riverside Way",
		OpenTime:            "08:00",
		CloseTime:           "22:00",
		SlotDurationMinutes: 60,
		Timezone:            "UTC",
		OwnerUserID:         "owner-1",
		Status:              "active",
	})
	if err != nil {
		t.Fatalf("seed facility: %v", err)
	}
	return facility
}

// SeedCourt inserts an active court priced at 120000 cents per hour.
func SeedCourt(t *testing.T, database *db.DB, facilityID int64) db.Court {
	t.Helper()

	court, err := database.Queries.CreateCourt(context.Background(), db.CreateCourtParams{
		FacilityID:   facilityID,
		Name:         "Court 1",
		Category:     "indoor",
		PricePerHour: NullInt64(120000),
		Status:       "active",
	})
	if err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return court
}
