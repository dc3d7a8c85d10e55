package timetable

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProvisionCode is a normalized, slug-form exam accommodation.
type ProvisionCode string

const (
	ProvisionDataAsPresented          ProvisionCode = "data_as_presented_to_registry"
	ProvisionAccessibleHallGroundLift ProvisionCode = "accessible_exam_hall_ground_or_lift"
	ProvisionAccessibleHall           ProvisionCode = "accessible_hall"
	ProvisionAllowedEatDrink          ProvisionCode = "allowed_eat_drink"
	ProvisionAssistedEvacuation       ProvisionCode = "assisted_evacuation_required"
	ProvisionAdditionalComment        ProvisionCode = "exam_additional_comment"
	ProvisionAlternativeFormatPaper   ProvisionCode = "alternative_format_paper"
	ProvisionExtraTime                ProvisionCode = "extra_time"
	ProvisionExtraTime100             ProvisionCode = "extra_time_100"
	ProvisionExtraTime15PerHour       ProvisionCode = "extra_time_15_per_hour"
	ProvisionExtraTime20PerHour       ProvisionCode = "extra_time_20_per_hour"
	ProvisionExtraTime30PerHour       ProvisionCode = "extra_time_30_per_hour"
	ProvisionInvigilatorAwareness     ProvisionCode = "invigilator_awareness"
	ProvisionSeatedAtBack             ProvisionCode = "seated_at_back"
	ProvisionSeparateRoomNotOnOwn     ProvisionCode = "separate_room_not_on_own"
	ProvisionSeparateRoomOnOwn        ProvisionCode = "separate_room_on_own"
	ProvisionToiletBreaksRequired     ProvisionCode = "toilet_breaks_required"
	ProvisionUseComputer              ProvisionCode = "use_computer"
	ProvisionUseReader                ProvisionCode = "use_reader"
	ProvisionUseScribe                ProvisionCode = "use_scribe"
	ProvisionReader                   ProvisionCode = "reader"
	ProvisionScribe                   ProvisionCode = "scribe"
)

// VenueCap is the narrower set of capabilities that actually gate which
// room a student with provisions can sit in.
type VenueCap string

const (
	CapSeparateRoomOnOwn    VenueCap = "separate_room_on_own"
	CapSeparateRoomNotOnOwn VenueCap = "separate_room_not_on_own"
	CapUseComputer          VenueCap = "use_computer"
	CapAccessibleHall       VenueCap = "accessible_hall"
)

// VenueType classifies a physical room for capability inference.
type VenueType string

const (
	VenueTypeMainHall        VenueType = "main_hall"
	VenueTypePurpleCluster   VenueType = "purple_cluster"
	VenueTypeComputerCluster VenueType = "computer_cluster"
	VenueTypeSeparateRoom    VenueType = "separate_room"
	VenueTypeSchoolToSort    VenueType = "school_to_sort"
)

// Exam is one scheduled sitting of a course.
type Exam struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ExamName      string             `bson:"exam_name"`
	CourseCode    string             `bson:"course_code"`
	ExamType      string             `bson:"exam_type"`
	NoStudents    int                `bson:"no_students"`
	ExamSchool    string             `bson:"exam_school"`
	SchoolContact string             `bson:"school_contact"`
	ExamDate      *time.Time         `bson:"exam_date,omitempty"`
}

// Venue is a physical room with a calendar of available dates.
type Venue struct {
	VenueName             string     `bson:"_id"`
	Capacity              int        `bson:"capacity"`
	VenueType             VenueType  `bson:"venuetype"`
	IsAccessible          bool       `bson:"is_accessible"`
	Qualifications        []string   `bson:"qualifications"`
	Availability          []string   `bson:"availability"` // ISO dates, kept sorted ascending
	ProvisionCapabilities []VenueCap `bson:"provision_capabilities"`
}

// Student is a person sitting one or more exams.
type Student struct {
	StudentID   string `bson:"_id"`
	StudentName string `bson:"student_name"`
}

// ExamVenue binds an Exam to a Venue for a concrete sitting, or is a
// placeholder (VenueName nil) awaiting a venue that can satisfy
// ProvisionCapabilities.
type ExamVenue struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	ExamID                primitive.ObjectID `bson:"exam_id"`
	VenueName             *string            `bson:"venue_name,omitempty"`
	StartTime             *time.Time         `bson:"start_time,omitempty"`
	ExamLength            *int               `bson:"exam_length,omitempty"` // minutes
	Core                  bool               `bson:"core"`
	ProvisionCapabilities []VenueCap         `bson:"provision_capabilities"`
}

// StudentExam links a Student to an Exam, and (once matched) to the
// ExamVenue they will sit in.
type StudentExam struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	StudentID   string              `bson:"student_id"`
	ExamID      primitive.ObjectID  `bson:"exam_id"`
	ExamVenueID *primitive.ObjectID `bson:"exam_venue_id,omitempty"`
}

// Provisions records which accommodations a Student needs for a given Exam.
type Provisions struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ExamID    primitive.ObjectID `bson:"exam_id"`
	StudentID string             `bson:"student_id"`
	Codes     []ProvisionCode    `bson:"provisions"`
	Notes     *string            `bson:"notes,omitempty"`
}

// UploadLog records one processed upload for audit/history.
type UploadLog struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	FileName       string              `bson:"file_name"`
	UploadedBy     *primitive.ObjectID `bson:"uploaded_by,omitempty"`
	UploadedAt     time.Time           `bson:"uploaded_at"`
	RecordsCreated int                 `bson:"records_created"`
	RecordsUpdated int                 `bson:"records_updated"`
}

// PayloadKind is what the classifier decided a parsed spreadsheet contains.
type PayloadKind string

const (
	PayloadExam       PayloadKind = "exam"
	PayloadProvisions PayloadKind = "provisions"
	PayloadVenue      PayloadKind = "venue"
	PayloadUnknown    PayloadKind = "unknown"
)

// Row is one parsed spreadsheet row, keyed by normalized column name.
type Row map[string]any

// VenueDay is one column of a venue calendar sheet: a date and the rooms
// available on it.
type VenueDay struct {
	Weekday string      `json:"day"`
	Date    string      `json:"date"` // ISO yyyy-mm-dd
	Rooms   []VenueRoom `json:"rooms"`
}

// VenueRoom is one room entry for a venue-calendar date, either parsed
// from a spreadsheet cell (Name + font-color-derived Accessible) or
// supplied directly by a JSON venue payload (all fields).
type VenueRoom struct {
	Name           string    `json:"name"`
	Capacity       int       `json:"capacity"`
	VenueType      VenueType `json:"venuetype,omitempty"`
	Accessible     bool      `json:"accessible"`
	Qualifications []string  `json:"qualifications,omitempty"`
}

// ParsedPayload is the spreadsheet reader's output, ready for the
// orchestrator to dispatch.
type ParsedPayload struct {
	Kind      PayloadKind
	Rows      []Row      // Exam / Provisions sheets
	VenueDays []VenueDay // Venue sheets
}

// IngestSummary is returned to the HTTP client and folded into an
// UploadLog row.
type IngestSummary struct {
	Handled   bool     `json:"handled"`
	Type      string   `json:"type,omitempty"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	TotalRows int      `json:"total_rows"`
	Errors    []string `json:"errors,omitempty"`
}
