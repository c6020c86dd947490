package dates

import (
	"testing"
	"time"
)

func TestAddDaysAcrossDaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	SetLocation(loc)
	t.Cleanup(func() { SetLocation(nil) })

	// 2025-03-09 is the spring-forward day in New York.
	got, err := AddDays("2025-03-03", 7)
	if err != nil {
		t.Fatalf("AddDays returned error: %v", err)
	}
	if got != "2025-03-10" {
		t.Fatalf("expected 2025-03-10, got %s", got)
	}

	days, err := DaysBetween("2025-03-03", "2025-03-17")
	if err != nil {
		t.Fatalf("DaysBetween returned error: %v", err)
	}
	if days != 14 {
		t.Fatalf("expected 14 days, got %d", days)
	}
}

func TestParseKeepsCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	SetLocation(loc)
	t.Cleanup(func() { SetLocation(nil) })

	parsed, err := Parse("2025-03-03")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if parsed.Location() != loc || parsed.Hour() != 0 {
		t.Fatalf("expected local midnight, got %v", parsed)
	}
	if Format(parsed) != "2025-03-03" {
		t.Fatalf("expected round trip to keep the day, got %s", Format(parsed))
	}
}

func TestValid(t *testing.T) {
	for _, value := range []string{"2025-02-30", "03/03/2025", "", "2025-3-3"} {
		if Valid(value) {
			t.Errorf("expected %q to be invalid", value)
		}
	}
	if !Valid("2024-02-29") {
		t.Errorf("expected leap day to be valid")
	}
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	SetLocation(loc)
	t.Cleanup(func() { SetLocation(nil) })

	now := time.Date(2025, 3, 4, 2, 0, 0, 0, time.UTC)
	if got := Today(now); got != "2025-03-03" {
		t.Fatalf("expected local date 2025-03-03, got %s", got)
	}
}
