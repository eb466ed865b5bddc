// internal/booking/timeofday_test.go
package booking

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain minutes", input: "09:30", want: 570},
		{name: "with seconds below half", input: "09:30:29", want: 570},
		{name: "seconds round minute up", input: "09:30:30", want: 571},
		{name: "midnight", input: "00:00", want: 0},
		{name: "last minute", input: "23:59", want: 1439},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "hour out of range", input: "24:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMinuteOfDayRounding(t *testing.T) {
	base := time.Date(2026, 9, 5, 14, 45, 0, 0, time.UTC)

	if got := MinuteOfDay(base); got != 885 {
		t.Errorf("MinuteOfDay(14:45:00) = %d, want 885", got)
	}
	if got := MinuteOfDay(base.Add(29 * time.Second)); got != 885 {
		t.Errorf("MinuteOfDay(14:45:29) = %d, want 885", got)
	}
	if got := MinuteOfDay(base.Add(30 * time.Second)); got != 886 {
		t.Errorf("MinuteOfDay(14:45:30) = %d, want 886", got)
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(570); got != "09:30" {
		t.Errorf("FormatClock(570) = %q, want 09:30", got)
	}
	if got := FormatClock(0); got != "00:00" {
		t.Errorf("FormatClock(0) = %q, want 00:00", got)
	}
}

func TestCheckinTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	got, err := CheckinTime("2026-09-05", 600, loc)
	if err != nil {
		t.Fatalf("CheckinTime: %v", err)
	}
	want := time.Date(2026, 9, 5, 10, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("CheckinTime = %v, want %v", got, want)
	}

	if _, err := CheckinTime("05/09/2026", 600, loc); err == nil {
		t.Error("expected error for malformed date")
	}
}
