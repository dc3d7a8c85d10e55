package timetable

import (
	"context"
	"sort"
	"time"
)

// IngestVenueDays processes a parsed venue calendar per spec.md §4.6: one
// Venue per room name, with availability unioned across every date the
// room appears on. After each upsert, placeholders compatible with the
// venue are reconciled onto it (spec.md §9, grounded on the source
// system's attach_placeholders_to_venue).
func IngestVenueDays(ctx context.Context, repo Repository, days []VenueDay) (*IngestSummary, error) {
	totalRows := 0
	for _, day := range days {
		totalRows += len(day.Rooms)
	}
	summary := &IngestSummary{TotalRows: totalRows}

	type roomUpdate struct {
		room VenueRoom
		date string
	}
	byName := make(map[string][]roomUpdate)
	var order []string
	for _, day := range days {
		for _, room := range day.Rooms {
			name := room.Name
			if name == "" {
				summary.Skipped++
				continue
			}
			if _, seen := byName[name]; !seen {
				order = append(order, name)
			}
			byName[name] = append(byName[name], roomUpdate{room: room, date: day.Date})
		}
	}

	for _, name := range order {
		updates := byName[name]

		unlock, err := repo.LockVenue(ctx, name)
		if err != nil {
			return nil, err
		}

		venue, err := repo.FindVenueByName(ctx, name)
		if err != nil {
			unlock(ctx)
			return nil, err
		}

		first := updates[0].room
		if venue == nil {
			venue = &Venue{
				VenueName:    name,
				Capacity:     first.Capacity,
				VenueType:    orDefaultVenueType(first.VenueType),
				IsAccessible: first.Accessible,
			}
			if first.Qualifications != nil {
				venue.Qualifications = first.Qualifications
			}
			for _, u := range updates {
				venue.Availability = appendUniqueSorted(venue.Availability, u.date)
			}
			if err := repo.CreateVenue(ctx, venue); err != nil {
				unlock(ctx)
				return nil, err
			}
			summary.Created++
		} else {
			venue.Capacity = first.Capacity
			venue.VenueType = orDefaultVenueType(first.VenueType)
			venue.IsAccessible = first.Accessible
			if first.Qualifications != nil {
				venue.Qualifications = first.Qualifications
			}
			for _, u := range updates {
				venue.Availability = appendUniqueSorted(venue.Availability, u.date)
			}
			if err := repo.UpdateVenue(ctx, venue); err != nil {
				unlock(ctx)
				return nil, err
			}
			summary.Updated++
		}

		if err := reconcilePlaceholders(ctx, repo, venue); err != nil {
			unlock(ctx)
			return nil, err
		}
		unlock(ctx)
	}

	summary.Handled = true
	return summary, nil
}

func orDefaultVenueType(t VenueType) VenueType {
	if t == "" {
		return VenueTypeSchoolToSort
	}
	return t
}

func appendUniqueSorted(existing []string, date string) []string {
	if date == "" {
		return existing
	}
	for _, d := range existing {
		if d == date {
			return existing
		}
	}
	out := append(existing, date)
	sort.Strings(out)
	return out
}

// reconcilePlaceholders promotes any outstanding placeholder ExamVenue
// whose required capabilities this venue now satisfies: the placeholder
// is bound to the venue directly, or, if a concrete ExamVenue already
// exists for that (exam, venue), the placeholder's StudentExam rows are
// repointed onto it and the now-redundant placeholder is deleted.
func reconcilePlaceholders(ctx context.Context, repo Repository, venue *Venue) error {
	placeholders, err := repo.ListPlaceholderExamVenues(ctx)
	if err != nil {
		return err
	}

	for i := range placeholders {
		ph := placeholders[i]
		if !VenueSupports(venue, ph.ProvisionCapabilities) {
			continue
		}
		exam, err := repo.FindExamByID(ctx, ph.ExamID)
		if err != nil {
			return err
		}
		var examDate *time.Time
		if exam != nil {
			examDate = exam.ExamDate
		}
		if !IsAvailable(venue, examDate) {
			continue
		}

		siblings, err := repo.FindExamVenuesByExam(ctx, ph.ExamID)
		if err != nil {
			return err
		}

		var duplicate *ExamVenue
		for j := range siblings {
			s := siblings[j]
			if s.ID == ph.ID || s.VenueName == nil {
				continue
			}
			if *s.VenueName != venue.VenueName {
				continue
			}
			if ph.StartTime != nil && s.StartTime != nil && !s.StartTime.Equal(*ph.StartTime) {
				continue
			}
			if ph.ExamLength != nil && s.ExamLength != nil && *s.ExamLength != *ph.ExamLength {
				continue
			}
			duplicate = &s
			break
		}

		if duplicate != nil {
			duplicate.ProvisionCapabilities = unionCaps(duplicate.ProvisionCapabilities, ph.ProvisionCapabilities)
			if err := repo.UpdateExamVenue(ctx, duplicate); err != nil {
				return err
			}
			if err := repo.RepointStudentExams(ctx, ph.ID, duplicate.ID); err != nil {
				return err
			}
			if err := repo.DeleteExamVenue(ctx, ph.ID); err != nil {
				return err
			}
			continue
		}

		name := venue.VenueName
		ph.VenueName = &name
		if err := repo.UpdateExamVenue(ctx, &ph); err != nil {
			return err
		}
	}
	return nil
}
