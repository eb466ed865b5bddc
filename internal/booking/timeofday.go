// internal/booking/timeofday.go
package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical check-in date format.
	DateLayout = "2006-01-02"

	minutesPerDay = 24 * 60
)

// MinuteOfDay normalizes a wall-clock time to a whole minute of the day.
// A seconds component of 30 or more rounds the minute up, so two times that
// differ only by sub-minute jitter compare equal. Every comparison in this
// package goes through this normalization.
func MinuteOfDay(t time.Time) int64 {
	minutes := int64(t.Hour())*60 + int64(t.Minute())
	if t.Second() >= 30 {
		minutes++
	}
	return minutes
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into a normalized minute of the
// day using the same round-half-up rule as MinuteOfDay.
func ParseClock(value string) (int64, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("time %q must be in HH:MM or HH:MM:SS format", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("time %q has an invalid hour", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q has an invalid minute", value)
	}

	minutes := int64(hour)*60 + int64(minute)
	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, fmt.Errorf("time %q has an invalid second", value)
		}
		if second >= 30 {
			minutes++
		}
	}
	if minutes > minutesPerDay {
		return 0, fmt.Errorf("time %q is past the end of the day", value)
	}
	return minutes, nil
}

// FormatClock renders a minute of the day as "HH:MM".
func FormatClock(minutes int64) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// CheckinTime anchors a check-in date and minute of the day in the
// facility's location.
func CheckinTime(checkinDate string, minutes int64, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, checkinDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("check-in date %q must be in YYYY-MM-DD format", checkinDate)
	}
	return day.Add(time.Duration(minutes) * time.Minute), nil
}
