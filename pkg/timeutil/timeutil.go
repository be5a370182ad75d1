// Package timeutil handles the two time shapes the booking core works with:
// timezone-naive calendar days ("2006-01-02") and wall-clock minutes
// ("HH:MM"). Appointments never carry a full timestamp; the pair (date,
// clock) is the unit of scheduling.
package timeutil

import (
	"fmt"
	"strconv"
	"time"
)

const (
	DateLayout = "2006-01-02"
	// MinutesPerDay bounds a Clock value.
	MinutesPerDay = 24 * 60
)

// Clock is a wall-clock time expressed as minutes since midnight.
type Clock int

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return Clock(h*60 + m), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

func (c Clock) Before(other Clock) bool { return c < other }
func (c Clock) After(other Clock) bool  { return c > other }

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Intervals that merely touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && aEnd > bStart
}

// ParseDate parses a "YYYY-MM-DD" calendar day. The result is anchored at
// UTC midnight purely as a canonical representation; no timezone semantics
// are attached to it.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a calendar day as "YYYY-MM-DD".
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// ISOWeekday returns the ISO 8601 day of week for a calendar day:
// Monday=1 .. Sunday=7. Derived from pure calendar arithmetic, never from
// a timezone offset.
func ISOWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// At combines a calendar day and a clock into an instant in the given
// fixed-offset location. Used only for "hours until appointment" style
// comparisons against the current time.
func At(date time.Time, c Clock, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(c)/60, int(c)%60, 0, 0, loc)
}

// FixedOffset builds a fixed-offset location from whole minutes east of UTC.
func FixedOffset(minutes int) *time.Location {
	sign := "+"
	m := minutes
	if m < 0 {
		sign = "-"
		m = -m
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, m/60, m%60)
	return time.FixedZone(name, minutes*60)
}
