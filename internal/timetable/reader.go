package timetable

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// requiredColumns lists the canonical columns an Exam/Provisions sheet
// must carry after header mapping, per spec.md §4.4.
var requiredColumns = map[PayloadKind][]string{
	PayloadExam:       {"exam_code", "exam_date"},
	PayloadProvisions: {"student_id", "exam_code"},
}

// ErrNoFileUploaded is returned when the HTTP handler finds no file part.
var ErrNoFileUploaded = fmt.Errorf("No file uploaded.")

// ErrParseFailed wraps any failure to open/interpret the uploaded workbook.
var ErrParseFailed = fmt.Errorf("Failed to parse uploaded file.")

// ReadUpload opens an uploaded workbook and classifies + parses its first
// sheet into a ParsedPayload, dispatching Provisions -> Exam -> Venue in
// that priority order exactly as spec.md §4.3/§4.4 describes.
func ReadUpload(r io.Reader) (*ParsedPayload, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ErrParseFailed
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrParseFailed
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, ErrParseFailed
	}
	if len(grid) == 0 {
		return &ParsedPayload{Kind: PayloadUnknown}, nil
	}

	rawHeaderRow, rawFirstDataRow, rawSecondDataRow := rowAsAny(grid, 0), rowAsAny(grid, 1), rowAsAny(grid, 2)

	headers, dataRows, school := applyBestHeader(grid)
	mapped := MapEquivalentColumns(headers)
	canonical := canonicalColumnList(headers, mapped)

	if DetectProvision(canonical) {
		rows := buildRows(headers, mapped, dataRows, school)
		if missing := missingColumns(rows, PayloadProvisions); len(missing) > 0 {
			return nil, fmt.Errorf("Missing required columns: %s", strings.Join(missing, ", "))
		}
		return &ParsedPayload{Kind: PayloadProvisions, Rows: rows}, nil
	}

	if DetectExam(canonical) {
		rows := buildRows(headers, mapped, dataRows, school)
		if missing := missingColumns(rows, PayloadExam); len(missing) > 0 {
			return nil, fmt.Errorf("Missing required columns: %s", strings.Join(missing, ", "))
		}
		return &ParsedPayload{Kind: PayloadExam, Rows: rows}, nil
	}

	if DetectVenue(rawHeaderRow, rawFirstDataRow, rawSecondDataRow) {
		days, err := parseVenueSheet(f, sheet)
		if err != nil {
			return nil, ErrParseFailed
		}
		return &ParsedPayload{Kind: PayloadVenue, VenueDays: days}, nil
	}

	return &ParsedPayload{Kind: PayloadUnknown}, nil
}

func rowAsAny(grid [][]string, idx int) []any {
	if idx >= len(grid) {
		return nil
	}
	out := make([]any, len(grid[idx]))
	for i, v := range grid[idx] {
		out[i] = v
	}
	return out
}

// applyBestHeader implements the header-search heuristic: if the current
// header row scores poorly (few recognized exam/provision columns, or at
// least half of its cells blank/"Unnamed"), try the first 5 data rows as
// candidate headers and take the best-scoring one (most recognized exam
// plus provision columns). When a better header is found
// below row 0, the row immediately above it is captured as an implicit
// "school" value (a common layout where a school name sits above the
// real header).
func applyBestHeader(grid [][]string) (headers []string, dataRows [][]string, school string) {
	headers = grid[0]
	dataRows = grid[1:]

	bestCanonical := canonicalColumnList(headers, MapEquivalentColumns(headers))
	bestExam, bestProv := scoreColumns(bestCanonical)

	unnamedCount := 0
	for _, h := range headers {
		if isUnnamedHeader(h) {
			unnamedCount++
		}
	}
	headerSearchNeeded := (bestExam < 2 && bestProv < 2) || unnamedCount*2 >= len(headers)

	if !headerSearchNeeded {
		return headers, dataRows, ""
	}

	limit := 5
	if limit > len(grid)-1 {
		limit = len(grid) - 1
	}
	bestIdx := 0
	for i := 1; i <= limit; i++ {
		candidate := grid[i]
		candidateCanonical := canonicalColumnList(candidate, MapEquivalentColumns(candidate))
		exam, prov := scoreColumns(candidateCanonical)
		if exam+prov > bestExam+bestProv {
			bestIdx, bestExam, bestProv = i, exam, prov
		}
	}
	if bestIdx == 0 {
		return headers, dataRows, ""
	}
	for _, cell := range grid[bestIdx-1] {
		if strings.TrimSpace(cell) != "" {
			school = strings.TrimSpace(cell)
			break
		}
	}
	return grid[bestIdx], grid[bestIdx+1:], school
}

func scoreColumns(canonical []string) (examHits, provHits int) {
	set := toSet(canonical)
	for col := range set {
		if examIndicators[col] {
			examHits++
		}
		if provisionIndicators[col] {
			provHits++
		}
	}
	return examHits, provHits
}

func canonicalColumnList(headers []string, mapped map[string]string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if c, ok := mapped[h]; ok {
			out = append(out, c)
		} else {
			out = append(out, Normalize(h))
		}
	}
	return out
}

func buildRows(headers []string, mapped map[string]string, dataRows [][]string, school string) []Row {
	rows := make([]Row, 0, len(dataRows))
	for _, raw := range dataRows {
		empty := true
		row := make(Row, len(headers))
		for i, h := range headers {
			if i >= len(raw) {
				continue
			}
			val := strings.TrimSpace(raw[i])
			if val == "" {
				continue
			}
			empty = false
			key := h
			if c, ok := mapped[h]; ok {
				key = c
			}
			if key == "" || isUnnamedHeader(h) {
				continue
			}
			row[key] = val
		}
		if empty {
			continue
		}
		if school != "" {
			if _, ok := row["school"]; !ok {
				row["school"] = school
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func missingColumns(rows []Row, kind PayloadKind) []string {
	required := requiredColumns[kind]
	if len(required) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			present[k] = true
		}
	}
	var missing []string
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// parseVenueSheet reads a venue calendar sheet column by column: row 1 is
// the weekday name, row 2 the date, rows 3.. room names, with font color
// determining accessibility.
func parseVenueSheet(f *excelize.File, sheet string) ([]VenueDay, error) {
	cols, err := f.GetCols(sheet)
	if err != nil {
		return nil, err
	}

	var days []VenueDay
	for colIdx, col := range cols {
		dayText := cellAt(col, 0)
		dateText := cellAt(col, 1)
		if strings.TrimSpace(dayText) == "" {
			continue
		}

		var rooms []VenueRoom
		colLetter, _ := excelize.ColumnNumberToName(colIdx + 1)
		for rowIdx := 2; rowIdx < len(col); rowIdx++ {
			value := strings.TrimSpace(col[rowIdx])
			if value == "" {
				continue
			}
			cellRef := fmt.Sprintf("%s%d", colLetter, rowIdx+1)
			accessible := !isRedFont(f, sheet, cellRef)
			rooms = append(rooms, VenueRoom{Name: value, Accessible: accessible})
		}

		days = append(days, VenueDay{
			Weekday: strings.TrimSpace(dayText),
			Date:    strings.TrimSpace(dateText),
			Rooms:   rooms,
		})
	}
	return days, nil
}

func cellAt(col []string, idx int) string {
	if idx >= len(col) {
		return ""
	}
	return col[idx]
}

// isRedFont reports whether a cell's font color is pure red, mirroring
// the original's `font_color.rgb.upper().startswith("FF0000")` check
// (the leading two hex digits of an ARGB string are alpha, so this
// matches "FFFF0000" as well as a bare "FF0000").
func isRedFont(f *excelize.File, sheet, cellRef string) bool {
	style, err := f.GetCellStyle(sheet, cellRef)
	if err != nil {
		return false
	}
	styleInfo, err := f.GetStyle(style)
	if err != nil || styleInfo == nil || styleInfo.Font == nil {
		return false
	}
	color := strings.ToUpper(strings.TrimPrefix(styleInfo.Font.Color, "#"))
	if len(color) == 8 {
		color = color[2:]
	}
	return strings.HasPrefix(color, "FF0000")
}
