package timetable

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var venueSplitter = regexp.MustCompile(`[;,/|]`)

// IngestExamRows processes a batch of Exam sheet rows per spec.md §4.5.
// Every row is handled independently; a row-level problem is recorded in
// the summary's errors and does not abort the batch.
func IngestExamRows(ctx context.Context, repo Repository, rows []Row) (*IngestSummary, error) {
	summary := &IngestSummary{TotalRows: len(rows)}

	for i, row := range rows {
		rowNum := i + 1

		courseCode := CleanString(row["exam_code"], 0)
		if courseCode == "" {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: Missing exam_code", rowNum))
			continue
		}

		examDate, hasDate := CoerceDate(row["exam_date"])

		var start time.Time
		var hasStart bool
		if hasDate {
			start, hasStart = CombineStartDateTime(row["exam_start"], examDate)
		}

		var length int
		var hasLength bool
		if hasStart {
			length, hasLength = DurationInMinutes(row["exam_length"], row["exam_end"], start)
		} else {
			length, hasLength = CoerceDuration(row["exam_length"])
		}

		examName := CleanString(row["exam_name"], 30)
		if examName == "" {
			examName = "Exam"
		}
		school := CleanString(row["school"], 0)
		if school == "" {
			school = "Unassigned"
		}
		noStudents, _ := CoerceInt(row["no_students"])

		exam := &Exam{
			ExamName:      examName,
			CourseCode:    courseCode,
			ExamType:      CleanString(row["exam_type"], 0),
			NoStudents:    noStudents,
			ExamSchool:    school,
			SchoolContact: CleanString(row["school_contact"], 0),
		}
		if hasDate {
			d := examDate
			exam.ExamDate = &d
		}

		examID, created, err := repo.UpsertExamByCode(ctx, exam)
		if err != nil {
			return nil, err
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}

		if !hasStart || !hasLength {
			continue
		}

		for _, venueName := range splitVenueNames(row["main_venue"]) {
			if err := ensureCoreExamVenue(ctx, repo, examID, venueName, exam.ExamDate, start, length); err != nil {
				return nil, err
			}
		}
	}

	summary.Handled = true
	return summary, nil
}

func splitVenueNames(v any) []string {
	if IsMissing(v) {
		return nil
	}
	var names []string
	for _, tok := range venueSplitter.Split(CleanString(v, 0), -1) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			names = append(names, tok)
		}
	}
	return names
}

// ensureCoreExamVenue implements step 5 of §4.5: ensure the named Venue
// exists (creating a school_to_sort placeholder venue if not), then
// create/update a core ExamVenue for (exam, venue) with the computed
// timing, falling back to a placeholder ExamVenue if the venue is
// unavailable on the exam date or has a timing conflict with another exam
// that day.
func ensureCoreExamVenue(ctx context.Context, repo Repository, examID primitive.ObjectID, venueName string, examDate *time.Time, start time.Time, length int) error {
	unlock, err := repo.LockVenue(ctx, venueName)
	if err != nil {
		return err
	}
	defer unlock(ctx)

	venue, err := repo.FindVenueByName(ctx, venueName)
	if err != nil {
		return err
	}
	if venue == nil {
		venue = &Venue{
			VenueName:    venueName,
			VenueType:    VenueTypeSchoolToSort,
			IsAccessible: true,
			Capacity:     0,
		}
		if err := repo.CreateVenue(ctx, venue); err != nil {
			return err
		}
	}

	others, err := repo.FindOtherExamVenuesAtVenue(ctx, venueName)
	if err != nil {
		return err
	}

	usePlaceholder := !IsAvailable(venue, examDate) || HasTimingConflict(others, examID, start, length, true)

	existing, err := repo.FindExamVenuesByExam(ctx, examID)
	if err != nil {
		return err
	}

	for i := range existing {
		ev := existing[i]
		if !ev.Core {
			continue
		}
		if usePlaceholder {
			if ev.VenueName == nil {
				ev.StartTime = &start
				ev.ExamLength = &length
				return repo.UpdateExamVenue(ctx, &ev)
			}
			continue
		}
		if ev.VenueName != nil && *ev.VenueName == venueName {
			ev.StartTime = &start
			ev.ExamLength = &length
			return repo.UpdateExamVenue(ctx, &ev)
		}
	}

	created := &ExamVenue{
		ExamID:     examID,
		StartTime:  &start,
		ExamLength: &length,
		Core:       true,
	}
	if !usePlaceholder {
		name := venueName
		created.VenueName = &name
	}
	_, err = repo.CreateExamVenue(ctx, created)
	return err
}
