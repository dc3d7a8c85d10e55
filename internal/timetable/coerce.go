package timetable

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// excelEpoch is the day excelize/openpyxl-style serial dates count from
// (1899-12-30, accounting for the historical Lotus 1-2-3 leap-year bug).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	hhmmPattern    = regexp.MustCompile(`^\d{3,4}$`)
	hourMinPattern = regexp.MustCompile(`^(\d+)\s*:\s*(\d+)$`)
	hourPattern    = regexp.MustCompile(`(\d+)\s*h`)
	minutePattern  = regexp.MustCompile(`(\d+)\s*m`)
	digitsPattern  = regexp.MustCompile(`\d+`)
)

// IsMissing reports whether a spreadsheet cell value should be treated as
// absent: nil, an empty/whitespace string, or a NaN float.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

// CleanString trims a cell value to a string, optionally truncating it to
// maxLen runes. Returns "" for a missing value.
func CleanString(v any, maxLen int) string {
	if IsMissing(v) {
		return ""
	}
	s := strings.TrimSpace(toString(v))
	if maxLen > 0 && len([]rune(s)) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return s
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return ""
	}
}

// CoerceDate tolerantly interprets a cell as a calendar date.
func CoerceDate(v any) (time.Time, bool) {
	if IsMissing(v) {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t.Truncate(24 * time.Hour), true
	}
	if f, ok := asFloat(v); ok && f >= 40000 {
		return dateFromSerial(f), true
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{"2006-01-02", "02/01/2006", "01/02/2006", "2-Jan-2006", "2006/01/02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateFromSerial(serial float64) time.Time {
	days := int(serial)
	return excelEpoch.AddDate(0, 0, days)
}

// CoerceTime tolerantly interprets a cell as a time-of-day, returning
// hour/minute.
func CoerceTime(v any) (hour, minute int, ok bool) {
	if IsMissing(v) {
		return 0, 0, false
	}
	if t, isTime := v.(time.Time); isTime {
		return t.Hour(), t.Minute(), true
	}
	if f, isFloat := asFloat(v); isFloat {
		if f >= 0 && f < 1 {
			seconds := int(math.Round(f*86400)) % 86400
			return seconds / 3600, (seconds % 3600) / 60, true
		}
		// Could be an HHMM-style numeric like 1330.
		return timeFromDigits(strconv.Itoa(int(f)))
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return 0, 0, false
	}
	if m := hourMinPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return h, mi, true
	}
	for _, layout := range []string{"15:04:05", "15:04", "3:04 PM", "3:04PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	if hhmmPattern.MatchString(s) {
		return timeFromDigits(s)
	}
	return 0, 0, false
}

func timeFromDigits(s string) (hour, minute int, ok bool) {
	if !hhmmPattern.MatchString(s) {
		return 0, 0, false
	}
	if len(s) == 3 {
		s = "0" + s
	}
	h, err1 := strconv.Atoi(s[:2])
	m, err2 := strconv.Atoi(s[2:])
	if err1 != nil || err2 != nil || h > 23 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// CoerceDateTime tolerantly interprets a cell as a full timestamp.
func CoerceDateTime(v any) (time.Time, bool) {
	if IsMissing(v) {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	if f, ok := asFloat(v); ok && f >= 40000 {
		days := math.Trunc(f)
		frac := f - days
		d := dateFromSerial(days)
		seconds := int(math.Round(frac * 86400))
		return d.Add(time.Duration(seconds) * time.Second), true
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if d, ok := CoerceDate(v); ok {
		return d, true
	}
	return time.Time{}, false
}

// CombineStartDateTime merges a start-time cell with an exam-date cell
// into a single timestamp. If the start value is already a full
// datetime, it wins outright.
func CombineStartDateTime(startValue any, examDate time.Time) (time.Time, bool) {
	if dt, ok := CoerceDateTime(startValue); ok && (dt.Hour() != 0 || dt.Minute() != 0 || dt.Second() != 0) {
		return dt, true
	}
	if h, m, ok := CoerceTime(startValue); ok {
		return time.Date(examDate.Year(), examDate.Month(), examDate.Day(), h, m, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// CoerceDuration tolerantly interprets a cell as a duration in minutes.
// Supports bare minute integers, "H:MM", "2h30m"-ish free text, and plain
// digit fallback. Negative results clamp to 0.
func CoerceDuration(v any) (int, bool) {
	if IsMissing(v) {
		return 0, false
	}
	if f, ok := v.(float64); ok {
		return clampNonNegative(int(math.Round(f))), true
	}
	if i, ok := v.(int); ok {
		return clampNonNegative(i), true
	}
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return 0, false
	}
	if m := hourMinPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return clampNonNegative(h*60 + mi), true
	}
	total := 0
	matched := false
	if m := hourPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
		matched = true
	}
	if m := minutePattern.FindStringSubmatch(s); m != nil {
		mi, _ := strconv.Atoi(m[1])
		total += mi
		matched = true
	}
	if matched {
		return clampNonNegative(total), true
	}
	if m := digitsPattern.FindString(s); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return clampNonNegative(n), true
		}
	}
	return 0, false
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// DurationInMinutes resolves an exam's length preferring an explicit
// length cell, falling back to end-time minus start, extending into the
// next day if the end crosses midnight.
func DurationInMinutes(lengthValue, endValue any, start time.Time) (int, bool) {
	if d, ok := CoerceDuration(lengthValue); ok {
		return d, true
	}
	if h, m, ok := CoerceTime(endValue); ok {
		end := time.Date(start.Year(), start.Month(), start.Day(), h, m, 0, 0, start.Location())
		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
		return int(end.Sub(start).Minutes()), true
	}
	return 0, false
}

// CoerceInt tolerantly interprets a cell as an integer.
func CoerceInt(v any) (int, bool) {
	if IsMissing(v) {
		return 0, false
	}
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return int(math.Round(t)), true
	case int:
		return t, true
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return 0, false
	}
	if m := hourMinPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return h*60 + mi, true
	}
	total := 0
	matched := false
	if m := hourPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
		matched = true
	}
	if m := minutePattern.FindStringSubmatch(s); m != nil {
		mi, _ := strconv.Atoi(m[1])
		total += mi
		matched = true
	}
	if matched {
		return total, true
	}
	if m := digitsPattern.FindString(s); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

// Slugify lower-cases, trims, turns spaces into underscores, and drops
// every character outside [a-z0-9_]. Mirrors the original's
// `re.sub(r"[^a-z0-9_]+", "", value.strip().lower().replace(" ", "_"))`
// exactly, since the provision vocabulary's slug table is built with it
// and must agree byte-for-byte with the spreadsheet's free text.
func Slugify(s string) string {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
