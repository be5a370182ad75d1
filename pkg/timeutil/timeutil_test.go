package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:30", 0, true},
		{"09-30", 0, true},
		{"09:3a", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "09:05", Clock(545).String())
	assert.Equal(t, "00:00", Clock(0).String())
	assert.Equal(t, "23:59", Clock(1439).String())
}

func TestClockAdd(t *testing.T) {
	c, err := ParseClock("09:00")
	require.NoError(t, err)
	assert.Equal(t, "10:30", c.Add(90).String())
}

func TestOverlaps(t *testing.T) {
	at := func(s string) Clock {
		c, err := ParseClock(s)
		require.NoError(t, err)
		return c
	}

	// Touching intervals do not overlap.
	assert.False(t, Overlaps(at("09:00"), at("10:00"), at("10:00"), at("11:00")))
	assert.False(t, Overlaps(at("10:00"), at("11:00"), at("09:00"), at("10:00")))

	assert.True(t, Overlaps(at("09:00"), at("10:00"), at("09:30"), at("10:30")))
	assert.True(t, Overlaps(at("09:00"), at("12:00"), at("10:00"), at("11:00")))
	assert.True(t, Overlaps(at("10:00"), at("11:00"), at("09:00"), at("12:00")))
	assert.False(t, Overlaps(at("09:00"), at("10:00"), at("11:00"), at("12:00")))
}

func TestISOWeekday(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	for i, want := range []int{1, 2, 3, 4, 5, 6, 7} {
		d := monday.AddDate(0, 0, i)
		assert.Equal(t, want, ISOWeekday(d), "day %s", d.Format(DateLayout))
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 28, d.Day())

	_, err = ParseDate("28/02/2026")
	assert.Error(t, err)

	_, err = ParseDate("2026-02-30")
	assert.Error(t, err)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2026, time.January))
	assert.Equal(t, 28, DaysInMonth(2026, time.February))
	assert.Equal(t, 29, DaysInMonth(2028, time.February))
	assert.Equal(t, 30, DaysInMonth(2026, time.April))
	assert.Equal(t, 31, DaysInMonth(2026, time.December))
}

func TestAtWithFixedOffset(t *testing.T) {
	loc := FixedOffset(-180)
	date, err := ParseDate("2026-08-28")
	require.NoError(t, err)
	c, err := ParseClock("14:30")
	require.NoError(t, err)

	at := At(date, c, loc)
	assert.Equal(t, 14, at.Hour())
	assert.Equal(t, 30, at.Minute())

	_, offset := at.Zone()
	assert.Equal(t, -180*60, offset)
}
