package timetable

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeRepository is an in-memory Repository used by the ingest and
// matching tests below. It has no indexes and no locking; LockVenue is a
// no-op unlock since tests run single-goroutine.
type fakeRepository struct {
	exams        map[primitive.ObjectID]Exam
	examsByCode  map[string]primitive.ObjectID
	venues       map[string]Venue
	students     map[string]Student
	examVenues   map[primitive.ObjectID]ExamVenue
	studentExams map[string]StudentExam // key: studentID+examID.Hex()
	provisions   map[string]Provisions  // key: studentID+examID.Hex()
	uploadLogs   []UploadLog
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		exams:        make(map[primitive.ObjectID]Exam),
		examsByCode:  make(map[string]primitive.ObjectID),
		venues:       make(map[string]Venue),
		students:     make(map[string]Student),
		examVenues:   make(map[primitive.ObjectID]ExamVenue),
		studentExams: make(map[string]StudentExam),
		provisions:   make(map[string]Provisions),
	}
}

func (r *fakeRepository) UpsertExamByCode(ctx context.Context, exam *Exam) (primitive.ObjectID, bool, error) {
	if id, ok := r.examsByCode[exam.CourseCode]; ok {
		existing := r.exams[id]
		exam.ID = id
		exam.NoStudents = maxInt(existing.NoStudents, exam.NoStudents)
		r.exams[id] = *exam
		return id, false, nil
	}
	id := primitive.NewObjectID()
	exam.ID = id
	r.exams[id] = *exam
	r.examsByCode[exam.CourseCode] = id
	return id, true, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (r *fakeRepository) FindExamByCode(ctx context.Context, courseCode string) (*Exam, error) {
	id, ok := r.examsByCode[courseCode]
	if !ok {
		return nil, nil
	}
	e := r.exams[id]
	return &e, nil
}

func (r *fakeRepository) FindExamByID(ctx context.Context, id primitive.ObjectID) (*Exam, error) {
	e, ok := r.exams[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *fakeRepository) ListExams(ctx context.Context) ([]Exam, error) {
	out := make([]Exam, 0, len(r.exams))
	for _, e := range r.exams {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeRepository) FindVenueByName(ctx context.Context, name string) (*Venue, error) {
	v, ok := r.venues[name]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *fakeRepository) CreateVenue(ctx context.Context, venue *Venue) error {
	sort.Strings(venue.Availability)
	r.venues[venue.VenueName] = *venue
	return nil
}

func (r *fakeRepository) UpdateVenue(ctx context.Context, venue *Venue) error {
	sort.Strings(venue.Availability)
	r.venues[venue.VenueName] = *venue
	return nil
}

func (r *fakeRepository) ListVenues(ctx context.Context) ([]Venue, error) {
	out := make([]Venue, 0, len(r.venues))
	for _, v := range r.venues {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeRepository) UpsertStudent(ctx context.Context, student *Student) (bool, error) {
	_, existed := r.students[student.StudentID]
	r.students[student.StudentID] = *student
	return !existed, nil
}

func (r *fakeRepository) FindExamVenuesByExam(ctx context.Context, examID primitive.ObjectID) ([]ExamVenue, error) {
	var out []ExamVenue
	for _, ev := range r.examVenues {
		if ev.ExamID == examID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeRepository) FindExamVenueByID(ctx context.Context, id primitive.ObjectID) (*ExamVenue, error) {
	ev, ok := r.examVenues[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (r *fakeRepository) FindOtherExamVenuesAtVenue(ctx context.Context, venueName string) ([]ExamVenue, error) {
	var out []ExamVenue
	for _, ev := range r.examVenues {
		if ev.VenueName != nil && *ev.VenueName == venueName {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeRepository) CreateExamVenue(ctx context.Context, ev *ExamVenue) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	ev.ID = id
	r.examVenues[id] = *ev
	return id, nil
}

func (r *fakeRepository) UpdateExamVenue(ctx context.Context, ev *ExamVenue) error {
	r.examVenues[ev.ID] = *ev
	return nil
}

func (r *fakeRepository) DeleteExamVenue(ctx context.Context, id primitive.ObjectID) error {
	delete(r.examVenues, id)
	return nil
}

func (r *fakeRepository) ListPlaceholderExamVenues(ctx context.Context) ([]ExamVenue, error) {
	var out []ExamVenue
	for _, ev := range r.examVenues {
		if ev.VenueName == nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeRepository) RepointStudentExams(ctx context.Context, fromExamVenueID, toExamVenueID primitive.ObjectID) error {
	for k, se := range r.studentExams {
		if se.ExamVenueID != nil && *se.ExamVenueID == fromExamVenueID {
			se.ExamVenueID = &toExamVenueID
			r.studentExams[k] = se
		}
	}
	return nil
}

func studentExamKey(studentID string, examID primitive.ObjectID) string {
	return fmt.Sprintf("%s|%s", studentID, examID.Hex())
}

func (r *fakeRepository) FindStudentExam(ctx context.Context, studentID string, examID primitive.ObjectID) (*StudentExam, error) {
	se, ok := r.studentExams[studentExamKey(studentID, examID)]
	if !ok {
		return nil, nil
	}
	return &se, nil
}

func (r *fakeRepository) UpsertStudentExam(ctx context.Context, se *StudentExam) error {
	key := studentExamKey(se.StudentID, se.ExamID)
	if se.ID.IsZero() {
		se.ID = primitive.NewObjectID()
	}
	r.studentExams[key] = *se
	return nil
}

func (r *fakeRepository) UpsertProvisions(ctx context.Context, p *Provisions) (bool, error) {
	key := studentExamKey(p.StudentID, p.ExamID)
	_, existed := r.provisions[key]
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.provisions[key] = *p
	return !existed, nil
}

func (r *fakeRepository) WriteUploadLog(ctx context.Context, log *UploadLog) error {
	r.uploadLogs = append(r.uploadLogs, *log)
	return nil
}

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeRepository) LockVenue(ctx context.Context, venueName string) (func(context.Context), error) {
	return func(context.Context) {}, nil
}
