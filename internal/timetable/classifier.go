package timetable

import (
	"math"
	"strings"
	"time"
)

var provisionIndicators = map[string]bool{
	"student_id": true, "student_name": true, "provisions": true,
	"additional_info": true, "registry": true, "mock_ids": true,
}

var examIndicators = map[string]bool{
	"exam_code": true, "exam_name": true, "exam_date": true,
	"exam_start": true, "main_venue": true, "exam_type": true,
	"exam_end": true, "exam_length": true,
}

var weekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday",
	"sat", "sun", "saturday", "sunday",
}

// DetectProvision reports whether a set of normalized/canonical column
// names indicates a student-provisions sheet.
func DetectProvision(cols []string) bool {
	set := toSet(cols)
	strongHits := 0
	studentish := 0
	provisionish := 0
	for col := range set {
		if provisionIndicators[col] {
			strongHits++
		}
		if strings.Contains(col, "student") {
			studentish++
		}
		if strings.Contains(col, "provision") || strings.Contains(col, "registry") || strings.Contains(col, "adjustment") {
			provisionish++
		}
	}
	return strongHits >= 2 || (studentish >= 1 && provisionish >= 1)
}

// DetectExam reports whether a set of normalized/canonical column names
// indicates an exam-session sheet. Exam sheets must NOT also look like a
// provisions sheet (a row of both course codes and student registry
// columns is a provisions sheet).
func DetectExam(cols []string) bool {
	set := toSet(cols)
	hits := 0
	for col := range set {
		if examIndicators[col] {
			hits++
		}
	}
	return hits >= 2 && !DetectProvision(cols)
}

// looksLikeDateCell reports whether a raw cell value looks like a
// calendar date: a native time, an Excel serial >= 40000, or text
// containing a date separator or a 5+ digit numeric string.
func looksLikeDateCell(v any) bool {
	if v == nil {
		return false
	}
	if t, ok := v.(time.Time); ok {
		_ = t
		return true
	}
	if f, ok := asFloat(v); ok {
		if math.IsNaN(f) {
			return false
		}
		return f >= 40000
	}
	text := strings.TrimSpace(toString(v))
	if text == "" {
		return false
	}
	lowered := strings.ToLower(text)
	if strings.ContainsAny(lowered, "/-") {
		return true
	}
	if isAllDigits(lowered) && len(lowered) >= 5 {
		return true
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func weekdayHits(cells []any) int {
	count := 0
	for _, cell := range cells {
		if cell == nil {
			continue
		}
		lowered := strings.ToLower(toString(cell))
		for _, day := range weekdayNames {
			if strings.Contains(lowered, day) {
				count++
				break
			}
		}
	}
	return count
}

func dateHits(cells []any) int {
	count := 0
	for _, cell := range cells {
		if looksLikeDateCell(cell) {
			count++
		}
	}
	return count
}

// DetectVenue reports whether the raw (unmapped) grid looks like a venue
// calendar sheet: either the first two rows are weekday names then dates
// with no real header, or the header row itself contains weekday names
// and the first data row looks like dates.
func DetectVenue(headerRow []any, firstDataRow []any, secondDataRow []any) bool {
	if len(secondDataRow) > 0 && weekdayHits(firstDataRow) >= 1 && dateHits(secondDataRow) >= 1 {
		return true
	}
	if len(headerRow) > 0 && len(firstDataRow) > 0 && weekdayHits(headerRow) >= 1 && dateHits(firstDataRow) >= 1 {
		return true
	}
	return false
}

func toSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}
