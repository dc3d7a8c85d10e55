package timetable

import "strings"

// equivalentColumns maps each canonical internal field name to the messy
// header spellings a real spreadsheet uses for it.
var equivalentColumns = map[string][]string{
	"exam_code":   {"exam code", "course code", "code"},
	"exam_name":   {"exam name", "assessment name", "module", "name"},
	"exam_date":   {"exam date", "date"},
	"exam_start":  {"exam start", "exam start time", "ol start", "oc start", "start"},
	"exam_end":    {"exam end", "exam finish", "ol finish", "oc finish", "end"},
	"exam_length": {"exam length", "exam duration", "duration", "length", "time allowed"},
	"exam_type":   {"exam type", "assessment type", "type"},
	"main_venue":  {"main venue", "venue", "location", "room"},
	"school":      {"school", "department", "college"},

	"student_id":   {"mock ids", "mock id", "student id", "id"},
	"student_name": {"names", "student name", "name"},
	"provisions":   {"registry", "exam provision", "provision", "adjustments"},
	"additional_info": {"additional information", "notes", "comments", "info"},

	"exam_building": {"building", "site"},
}

// Normalize slugifies a raw spreadsheet header for comparison purposes.
func Normalize(header string) string {
	return Slugify(header)
}

// columnAliasTable inverts equivalentColumns into normalized-alias ->
// canonical-name, built once at package init.
var columnAliasTable = buildColumnAliasTable()

func buildColumnAliasTable() map[string]string {
	table := make(map[string]string)
	for canonical, aliases := range equivalentColumns {
		table[Normalize(canonical)] = canonical
		for _, alias := range aliases {
			table[Normalize(alias)] = canonical
		}
	}
	return table
}

// MapEquivalentColumns maps a row of raw headers to canonical field names.
// A header with no known alias keeps its normalized form as-is, so it is
// still addressable (just not treated as one of the recognized fields).
func MapEquivalentColumns(headers []string) map[string]string {
	mapped := make(map[string]string, len(headers))
	for _, h := range headers {
		norm := Normalize(h)
		if norm == "" {
			continue
		}
		if canonical, ok := columnAliasTable[norm]; ok {
			mapped[h] = canonical
		} else {
			mapped[h] = norm
		}
	}
	return mapped
}

// isUnnamedHeader reports whether a raw header looks like a
// spreadsheet-generated placeholder ("Unnamed: 3", "Column1", blank).
func isUnnamedHeader(raw string) bool {
	norm := strings.TrimSpace(strings.ToLower(raw))
	if norm == "" {
		return true
	}
	return strings.HasPrefix(norm, "unnamed") || strings.HasPrefix(norm, "column")
}
