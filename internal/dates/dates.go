// Package dates converts between calendar dates and their YYYY-MM-DD form.
//
// All values are local midnight in the configured location. Conversions never
// pass through UTC, so a date typed by a viewer is the date stored.
package dates

import (
	"fmt"
	"sync"
	"time"
)

// Layout is the wire and storage format for calendar dates.
const Layout = "2006-01-02"

var (
	mu       sync.RWMutex
	location = time.Local
)

// SetLocation replaces the location used to build local midnight. A nil
// location restores time.Local.
func SetLocation(loc *time.Location) {
	mu.Lock()
	defer mu.Unlock()
	if loc == nil {
		loc = time.Local
	}
	location = loc
}

// Location returns the location used to build local midnight.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return location
}

// Parse reads a YYYY-MM-DD string as local midnight.
func Parse(value string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, value, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: invalid date %q: %w", value, err)
	}
	return t, nil
}

// Format renders the calendar date of t. The year, month and day are taken
// from t as given, without conversion.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Midnight returns local midnight of the calendar day that t falls on in its
// own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Location())
}

// AddDays moves a YYYY-MM-DD date by n calendar days. Daylight saving
// transitions do not affect the result.
func AddDays(value string, n int) (string, error) {
	t, err := Parse(value)
	if err != nil {
		return "", err
	}
	y, m, d := t.Date()
	return Format(time.Date(y, m, d+n, 0, 0, 0, 0, Location())), nil
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	ua := time.Date(ta.Year(), ta.Month(), ta.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(tb.Year(), tb.Month(), tb.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24), nil
}

// Valid reports whether value is a well formed YYYY-MM-DD date.
func Valid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// Today returns the current local date.
func Today(now time.Time) string {
	return Format(now.In(Location()))
}
