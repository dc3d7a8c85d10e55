package timetable

import (
	"regexp"
)

// provisionLabels pairs each ProvisionCode with the human label it carries
// in the original vocabulary, so the slug table can be built from both the
// value and the label the way the source system's PROVISION_SLUG_MAP is.
var provisionLabels = []struct {
	Code  ProvisionCode
	Label string
}{
	{ProvisionDataAsPresented, "Data as presented to Registry"},
	{ProvisionAccessibleHallGroundLift, "Accessible exam hall: must be ground floor or have reliable lift access available"},
	{ProvisionAccessibleHall, "Accessible hall"},
	{ProvisionAllowedEatDrink, "Allowed to eat and drink"},
	{ProvisionAssistedEvacuation, "Assisted evacuation required"},
	{ProvisionAdditionalComment, "Exam Additional Comment"},
	{ProvisionAlternativeFormatPaper, "Exam paper required in alternative format"},
	{ProvisionExtraTime, "Extra Time"},
	{ProvisionExtraTime100, "Extra time 100%"},
	{ProvisionExtraTime15PerHour, "Extra time 15 minutes every hour"},
	{ProvisionExtraTime20PerHour, "Extra time 20 minutes every hour"},
	{ProvisionExtraTime30PerHour, "Extra time 30 minutes every hour"},
	{ProvisionInvigilatorAwareness, "Invigilator awareness"},
	{ProvisionSeatedAtBack, "Seated at back"},
	{ProvisionSeparateRoomNotOnOwn, "Separate room not on own"},
	{ProvisionSeparateRoomOnOwn, "Separate room on own"},
	{ProvisionToiletBreaksRequired, "Toilet breaks required"},
	{ProvisionUseComputer, "Use of a computer"},
	{ProvisionUseReader, "Use of a reader"},
	{ProvisionUseScribe, "Use of a scribe"},
	{ProvisionReader, "Reader"},
	{ProvisionScribe, "Scribe"},
}

// provisionSlugMap maps every slugified value and slugified label to its
// canonical ProvisionCode, built once at package init exactly the way the
// source system's PROVISION_SLUG_MAP is (value slugs first, then label
// slugs, so a label slug equal to another code's value slug maps to the
// label's code), plus the legacy free-text alias "computer".
var provisionSlugMap = buildProvisionSlugMap()

func buildProvisionSlugMap() map[string]ProvisionCode {
	m := make(map[string]ProvisionCode, len(provisionLabels)*2)
	for _, p := range provisionLabels {
		m[Slugify(string(p.Code))] = p.Code
	}
	for _, p := range provisionLabels {
		m[Slugify(p.Label)] = p.Code
	}
	m["computer"] = ProvisionUseComputer
	return m
}

var provisionSplitter = regexp.MustCompile(`[;,/]`)

// NormalizeProvisions splits free text on `;`, `,`, `/`, slugifies each
// token, maps it through the vocabulary, and dedupes while preserving
// first-seen order. Unrecognized tokens are silently dropped, matching
// the source system's behaviour (a provisions cell is often a loose
// sentence; only the recognized sub-phrases matter).
func NormalizeProvisions(value any) []ProvisionCode {
	if IsMissing(value) {
		return nil
	}
	var tokens []string
	if list, ok := value.([]string); ok {
		tokens = list
	} else {
		tokens = provisionSplitter.Split(toString(value), -1)
	}

	var out []ProvisionCode
	seen := make(map[ProvisionCode]bool)
	for _, token := range tokens {
		slug := Slugify(token)
		if slug == "" {
			continue
		}
		code, ok := provisionSlugMap[slug]
		if !ok || seen[code] {
			continue
		}
		out = append(out, code)
		seen[code] = true
	}
	return out
}

// extraTimePerHour is the per-provision extra-time rate, in minutes per
// 60 minutes of exam length.
var extraTimePerHour = map[ProvisionCode]int{
	ProvisionExtraTime15PerHour: 15,
	ProvisionExtraTime20PerHour: 20,
	ProvisionExtraTime30PerHour: 30,
}

// smallExtraTimeThresholdPerHour resolves spec.md §9 Open Question (ii):
// extra time at or below this per-hour rate is "small" and does not force
// a student out of a shared room into an on-their-own venue.
const smallExtraTimeThresholdPerHour = 15
