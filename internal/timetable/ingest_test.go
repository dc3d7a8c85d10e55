package timetable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestExamRowsCreatesExamAndCoreVenue(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()

	rows := []Row{
		{
			"exam_code":   "CS101",
			"exam_name":   "Intro to Computing",
			"school":      "Computing Science",
			"exam_date":   "2026-03-05",
			"exam_start":  "09:30",
			"exam_length": 120.0,
			"main_venue":  "Main Hall",
		},
	}

	summary, err := IngestExamRows(ctx, repo, rows)
	require.NoError(t, err)
	assert.True(t, summary.Handled)
	assert.Equal(t, 1, summary.Created)
	assert.Empty(t, summary.Errors)

	exam, err := repo.FindExamByCode(ctx, "CS101")
	require.NoError(t, err)
	require.NotNil(t, exam)
	assert.Equal(t, "Intro to Computing", exam.ExamName)

	venue, err := repo.FindVenueByName(ctx, "Main Hall")
	require.NoError(t, err)
	require.NotNil(t, venue, "a school_to_sort placeholder venue is created for an unseen venue name")
	assert.Equal(t, VenueTypeSchoolToSort, venue.VenueType)

	evs, err := repo.FindExamVenuesByExam(ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Core)
	require.NotNil(t, evs[0].VenueName)
	assert.Equal(t, "Main Hall", *evs[0].VenueName)
}

func TestIngestExamRowsSkipsRowMissingCourseCode(t *testing.T) {
	repo := newFakeRepository()
	summary, err := IngestExamRows(context.Background(), repo, []Row{{"exam_name": "No code here"}})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "Missing exam_code")
}

func TestIngestProvisionRowsMatchesStudentToExistingCoreVenueWhenNoExtraTime(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()

	_, err := IngestExamRows(ctx, repo, []Row{{
		"exam_code":   "CS101",
		"exam_date":   "2026-03-05",
		"exam_start":  "09:30",
		"exam_length": 120.0,
		"main_venue":  "Main Hall",
	}})
	require.NoError(t, err)

	summary, err := IngestProvisionRows(ctx, repo, []Row{{
		"student_id": "1000001",
		"exam_code":  "CS101",
	}})
	require.NoError(t, err)
	assert.True(t, summary.Handled)
	assert.Empty(t, summary.Errors)

	exam, err := repo.FindExamByCode(ctx, "CS101")
	require.NoError(t, err)
	se, err := repo.FindStudentExam(ctx, "1000001", exam.ID)
	require.NoError(t, err)
	require.NotNil(t, se)
	require.NotNil(t, se.ExamVenueID, "a student with no provisions should be matched straight onto the core ExamVenue")

	ev, err := repo.FindExamVenueByID(ctx, *se.ExamVenueID)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.Core)
}

func TestIngestProvisionRowsAllocatesSeparateRoomForOnOwnProvision(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()

	_, err := IngestExamRows(ctx, repo, []Row{{
		"exam_code":   "CS101",
		"exam_date":   "2026-03-05",
		"exam_start":  "09:30",
		"exam_length": 120.0,
		"main_venue":  "Main Hall",
	}})
	require.NoError(t, err)

	require.NoError(t, repo.CreateVenue(ctx, &Venue{
		VenueName: "Quiet Room 1", VenueType: VenueTypeSeparateRoom, IsAccessible: true,
	}))

	summary, err := IngestProvisionRows(ctx, repo, []Row{{
		"student_id":  "1000002",
		"exam_code":   "CS101",
		"provisions":  "Separate Room (On Own)",
	}})
	require.NoError(t, err)
	assert.Empty(t, summary.Errors)

	exam, err := repo.FindExamByCode(ctx, "CS101")
	require.NoError(t, err)
	se, err := repo.FindStudentExam(ctx, "1000002", exam.ID)
	require.NoError(t, err)
	require.NotNil(t, se.ExamVenueID)

	ev, err := repo.FindExamVenueByID(ctx, *se.ExamVenueID)
	require.NoError(t, err)
	require.NotNil(t, ev.VenueName)
	assert.Equal(t, "Quiet Room 1", *ev.VenueName)
	assert.False(t, ev.Core)
}

func TestIngestVenueDaysUnionsAvailabilityAcrossDates(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()

	days := []VenueDay{
		{Date: "2026-03-05", Rooms: []VenueRoom{{Name: "Room Z", Capacity: 30, Accessible: true}}},
		{Date: "2026-03-06", Rooms: []VenueRoom{{Name: "Room Z", Capacity: 30, Accessible: true}}},
	}
	summary, err := IngestVenueDays(ctx, repo, days)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	venue, err := repo.FindVenueByName(ctx, "Room Z")
	require.NoError(t, err)
	require.NotNil(t, venue)
	assert.ElementsMatch(t, []string{"2026-03-05", "2026-03-06"}, venue.Availability)
}
