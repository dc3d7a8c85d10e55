package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing("   "))
	assert.True(t, IsMissing(float64(0)/zero()))
	assert.False(t, IsMissing("x"))
	assert.False(t, IsMissing(0))
}

func zero() float64 { return 0 }

func TestCleanStringTruncates(t *testing.T) {
	assert.Equal(t, "", CleanString(nil, 0))
	assert.Equal(t, "hello", CleanString("  hello  ", 0))
	assert.Equal(t, "hel", CleanString("hello", 3))
}

func TestSlugifyMatchesOriginalSemantics(t *testing.T) {
	cases := map[string]string{
		"Extra Time":             "extra_time",
		" Use Reader! ":          "use_reader",
		"Separate Room (On Own)": "separate_room_on_own",
		"100% extra time":        "100_extra_time",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestCoerceDateLayouts(t *testing.T) {
	d, ok := CoerceDate("2026-03-05")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), d)

	d, ok = CoerceDate("05/03/2026")
	assert.True(t, ok)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 5, d.Day())

	_, ok = CoerceDate(nil)
	assert.False(t, ok)
}

func TestCoerceTimeHHMM(t *testing.T) {
	h, m, ok := CoerceTime("1330")
	assert.True(t, ok)
	assert.Equal(t, 13, h)
	assert.Equal(t, 30, m)

	h, m, ok = CoerceTime("9:05")
	assert.True(t, ok)
	assert.Equal(t, 9, h)
	assert.Equal(t, 5, m)

	_, _, ok = CoerceTime("not a time")
	assert.False(t, ok)
}

func TestCoerceDurationVariants(t *testing.T) {
	d, ok := CoerceDuration(90.0)
	assert.True(t, ok)
	assert.Equal(t, 90, d)

	d, ok = CoerceDuration("2:30")
	assert.True(t, ok)
	assert.Equal(t, 150, d)

	d, ok = CoerceDuration("2h30m")
	assert.True(t, ok)
	assert.Equal(t, 150, d)

	d, ok = CoerceDuration(-5.0)
	assert.True(t, ok)
	assert.Equal(t, 0, d, "negative durations clamp to 0")
}

func TestDurationInMinutesFallsBackToEndTime(t *testing.T) {
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	mins, ok := DurationInMinutes(nil, "11:00", start)
	assert.True(t, ok)
	assert.Equal(t, 120, mins)

	mins, ok = DurationInMinutes(nil, "00:30", start)
	assert.True(t, ok, "end time past midnight rolls into the next day")
	assert.Equal(t, 15*60+30, mins)
}

func TestCombineStartDateTime(t *testing.T) {
	examDate := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	ts, ok := CombineStartDateTime("09:30", examDate)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC), ts)
}
