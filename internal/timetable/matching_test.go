package timetable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestVenueSupportsInfersFromType(t *testing.T) {
	computerRoom := &Venue{VenueName: "Computer Suite 1", VenueType: VenueTypeComputerCluster, IsAccessible: true}
	assert.True(t, VenueSupports(computerRoom, []VenueCap{CapUseComputer}))

	mainHall := &Venue{VenueName: "Main Hall", VenueType: VenueTypeMainHall, IsAccessible: false}
	assert.False(t, VenueSupports(mainHall, []VenueCap{CapUseComputer}))
	assert.False(t, VenueSupports(mainHall, []VenueCap{CapAccessibleHall}))

	accessibleHall := &Venue{VenueName: "Main Hall", VenueType: VenueTypeMainHall, IsAccessible: true}
	assert.True(t, VenueSupports(accessibleHall, []VenueCap{CapAccessibleHall}))
}

func TestIsAvailableUnconstrainedWhenNoCalendar(t *testing.T) {
	venue := &Venue{VenueName: "Room A"}
	assert.True(t, IsAvailable(venue, nil))
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsAvailable(venue, &date), "no availability list means unconstrained")

	venue.Availability = []string{"2026-03-06"}
	assert.False(t, IsAvailable(venue, &date))
	venue.Availability = []string{"2026-03-05", "2026-03-06"}
	assert.True(t, IsAvailable(venue, &date))
}

func TestHasTimingConflict(t *testing.T) {
	examA := primitive.NewObjectID()
	examB := primitive.NewObjectID()
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	length := 120
	others := []ExamVenue{{ExamID: examA, StartTime: &start, ExamLength: &length}}

	overlapStart := start.Add(30 * time.Minute)
	assert.True(t, HasTimingConflict(others, examB, overlapStart, 60, false))
	assert.True(t, HasTimingConflict(others, examA, overlapStart, 60, false), "same exam still conflicts without the overlap allowance")
	assert.False(t, HasTimingConflict(others, examA, overlapStart, 60, true), "allowSameExamOverlap exempts the same exam")

	disjointStart := start.Add(3 * time.Hour)
	assert.False(t, HasTimingConflict(others, examB, disjointStart, 60, false))
}

func TestExtraTimeTargetExtra100PercentShiftsThenExtendsRemainder(t *testing.T) {
	baseStart := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)
	targetStart, targetLength, _ := ExtraTimeTarget(baseStart, 60, []ProvisionCode{ProvisionExtraTime100})
	// 60 extra minutes; 30 min of headroom to the 09:00 floor absorbs 30,
	// the remaining 30 extends the length.
	assert.Equal(t, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), targetStart)
	assert.Equal(t, 90, targetLength)
}

func TestExtraTimeTargetShiftCappedAtNineAM(t *testing.T) {
	baseStart := time.Date(2026, 3, 5, 9, 15, 0, 0, time.UTC)
	targetStart, targetLength, _ := ExtraTimeTarget(baseStart, 60, []ProvisionCode{ProvisionExtraTime30PerHour})
	// 30 min/hour over 60 min base = 30 extra minutes, but only 15 min of
	// headroom exists before the 09:00 floor.
	assert.Equal(t, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), targetStart)
	assert.Equal(t, 75, targetLength)
}

func TestExtraTimeTargetNoProvisionsNoop(t *testing.T) {
	baseStart := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)
	targetStart, targetLength, small := ExtraTimeTarget(baseStart, 60, nil)
	assert.Equal(t, baseStart, targetStart)
	assert.Equal(t, 60, targetLength)
	assert.False(t, small)
}

func TestFindOrAllocateReusesExistingCompatibleExamVenue(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()
	examID := primitive.NewObjectID()

	venue := &Venue{VenueName: "Room A", VenueType: VenueTypeSeparateRoom, IsAccessible: true}
	require.NoError(t, repo.CreateVenue(ctx, venue))

	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	length := 60
	name := "Room A"
	existing := &ExamVenue{ExamID: examID, VenueName: &name, StartTime: &start, ExamLength: &length,
		ProvisionCapabilities: []VenueCap{CapSeparateRoomOnOwn}}
	id, err := repo.CreateExamVenue(ctx, existing)
	require.NoError(t, err)

	ev, err := FindOrAllocate(ctx, repo, MatchRequest{
		ExamID:       examID,
		RequiredCaps: []VenueCap{CapSeparateRoomOnOwn},
		TargetStart:  start,
		TargetLength: length,
	})
	require.NoError(t, err)
	assert.Equal(t, id, ev.ID, "should reuse the existing matching ExamVenue rather than allocate a new one")
}

func TestFindOrAllocateFallsBackToPlaceholderWhenNoVenueFits(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()
	examID := primitive.NewObjectID()

	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	ev, err := FindOrAllocate(ctx, repo, MatchRequest{
		ExamID:       examID,
		RequiredCaps: []VenueCap{CapSeparateRoomOnOwn},
		TargetStart:  start,
		TargetLength: 60,
	})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Nil(t, ev.VenueName, "no separate room exists yet, so a placeholder is created")
	assert.Equal(t, []VenueCap{CapSeparateRoomOnOwn}, ev.ProvisionCapabilities)
}

func TestFindOrAllocateAllocatesMatchingVenue(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()
	examID := primitive.NewObjectID()

	require.NoError(t, repo.CreateVenue(ctx, &Venue{VenueName: "Main Hall", VenueType: VenueTypeMainHall, IsAccessible: true}))
	require.NoError(t, repo.CreateVenue(ctx, &Venue{VenueName: "Computer Suite", VenueType: VenueTypeComputerCluster, IsAccessible: true}))

	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	ev, err := FindOrAllocate(ctx, repo, MatchRequest{
		ExamID:       examID,
		RequiredCaps: []VenueCap{CapUseComputer},
		TargetStart:  start,
		TargetLength: 60,
	})
	require.NoError(t, err)
	require.NotNil(t, ev.VenueName)
	assert.Equal(t, "Computer Suite", *ev.VenueName)
}
