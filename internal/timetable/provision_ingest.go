package timetable

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IngestProvisionRows processes a batch of Provisions sheet rows per
// spec.md §4.8, matching each student to an ExamVenue via the §4.7
// find-or-allocate engine.
func IngestProvisionRows(ctx context.Context, repo Repository, rows []Row) (*IngestSummary, error) {
	summary := &IngestSummary{TotalRows: len(rows)}

	for i, row := range rows {
		rowNum := i + 1

		studentID := firstNonEmpty(row, "student_id", "mock_ids", "id")
		courseCode := firstNonEmpty(row, "exam_code", "course_code")
		if studentID == "" || courseCode == "" {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: Missing student_id or exam_code", rowNum))
			continue
		}

		exam, err := repo.FindExamByCode(ctx, courseCode)
		if err != nil {
			return nil, err
		}
		if exam == nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Exam with code '%s' not found", courseCode))
			continue
		}

		studentName := CleanString(row["student_name"], 0)
		if studentName == "" {
			studentName = studentID
		}
		if _, err := repo.UpsertStudent(ctx, &Student{StudentID: studentID, StudentName: studentName}); err != nil {
			return nil, err
		}

		codes := NormalizeProvisions(row["provisions"])
		var notes *string
		if n := CleanString(row["additional_info"], 0); n != "" {
			notes = &n
		}

		provCreated, err := repo.UpsertProvisions(ctx, &Provisions{
			ExamID:    exam.ID,
			StudentID: studentID,
			Codes:     codes,
			Notes:     notes,
		})
		if err != nil {
			return nil, err
		}
		if provCreated {
			summary.Created++
		} else {
			summary.Updated++
		}

		se, err := repo.FindStudentExam(ctx, studentID, exam.ID)
		if err != nil {
			return nil, err
		}
		if se == nil {
			se = &StudentExam{StudentID: studentID, ExamID: exam.ID}
			if err := repo.UpsertStudentExam(ctx, se); err != nil {
				return nil, err
			}
		}

		if err := matchStudentToVenue(ctx, repo, exam, codes, se); err != nil {
			return nil, err
		}
	}

	summary.Handled = true
	return summary, nil
}

func firstNonEmpty(row Row, keys ...string) string {
	for _, k := range keys {
		if v := CleanString(row[k], 0); v != "" {
			return v
		}
	}
	return ""
}

// matchStudentToVenue computes the student's required caps and
// extra-time-adjusted target timing against the exam's core timing, runs
// find-or-allocate, and points the StudentExam at the result.
func matchStudentToVenue(ctx context.Context, repo Repository, exam *Exam, codes []ProvisionCode, se *StudentExam) error {
	baseStart, baseLength, ok := coreTiming(ctx, repo, exam.ID)
	if !ok {
		return nil
	}

	caps, requireAccessible := MatchingCaps(codes)
	targetStart, targetLength, smallExtraTime := ExtraTimeTarget(baseStart, baseLength, codes)

	req := MatchRequest{
		ExamID:       exam.ID,
		ExamDate:     exam.ExamDate,
		RequiredCaps: caps,
		TargetStart:  targetStart,
		TargetLength: targetLength,
	}
	req.RequireAccessible = requireAccessible

	if smallExtraTime {
		if venueName, ok := coreVenueName(ctx, repo, exam.ID); ok {
			req.PreferredVenue = &venueName
			req.AllowSameExamOverlap = true
		}
	}
	if req.RequireAccessible {
		if req.PreferredVenue != nil {
			venue, err := repo.FindVenueByName(ctx, *req.PreferredVenue)
			if err != nil {
				return err
			}
			if venue == nil || !venue.IsAccessible {
				req.PreferredVenue = nil
				req.AllowSameExamOverlap = false
			}
		}
	}

	ev, err := FindOrAllocate(ctx, repo, req)
	if err != nil {
		return err
	}

	se.ExamVenueID = &ev.ID
	return repo.UpsertStudentExam(ctx, se)
}

// coreTiming returns the core ExamVenue's timing for an exam, falling
// back to the first ExamVenue if no core one exists yet, per §4.7's
// "Extra-time computation" paragraph.
func coreTiming(ctx context.Context, repo Repository, examID primitive.ObjectID) (time.Time, int, bool) {
	existing, err := repo.FindExamVenuesByExam(ctx, examID)
	if err != nil || len(existing) == 0 {
		return time.Time{}, 0, false
	}
	var fallback *ExamVenue
	for i := range existing {
		ev := existing[i]
		if ev.StartTime == nil || ev.ExamLength == nil {
			continue
		}
		if ev.Core {
			return *ev.StartTime, *ev.ExamLength, true
		}
		if fallback == nil {
			fallback = &ev
		}
	}
	if fallback != nil {
		return *fallback.StartTime, *fallback.ExamLength, true
	}
	return time.Time{}, 0, false
}

// coreVenueName returns the venue name bound to this exam's core
// ExamVenue, if any.
func coreVenueName(ctx context.Context, repo Repository, examID primitive.ObjectID) (string, bool) {
	existing, err := repo.FindExamVenuesByExam(ctx, examID)
	if err != nil {
		return "", false
	}
	for _, ev := range existing {
		if ev.Core && ev.VenueName != nil {
			return *ev.VenueName, true
		}
	}
	return "", false
}
