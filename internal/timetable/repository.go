package timetable

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the narrow persistence seam the ingesters and the
// matching engine depend on. Implemented against MongoDB in
// repository_mongo.go; implemented against an in-memory map in tests.
type Repository interface {
	// Exam
	UpsertExamByCode(ctx context.Context, exam *Exam) (id primitive.ObjectID, created bool, err error)
	FindExamByCode(ctx context.Context, courseCode string) (*Exam, error)
	FindExamByID(ctx context.Context, id primitive.ObjectID) (*Exam, error)
	ListExams(ctx context.Context) ([]Exam, error)

	// Venue
	FindVenueByName(ctx context.Context, name string) (*Venue, error)
	CreateVenue(ctx context.Context, venue *Venue) error
	UpdateVenue(ctx context.Context, venue *Venue) error
	ListVenues(ctx context.Context) ([]Venue, error)

	// Student
	UpsertStudent(ctx context.Context, student *Student) (created bool, err error)

	// ExamVenue
	FindExamVenuesByExam(ctx context.Context, examID primitive.ObjectID) ([]ExamVenue, error)
	FindExamVenueByID(ctx context.Context, id primitive.ObjectID) (*ExamVenue, error)
	FindOtherExamVenuesAtVenue(ctx context.Context, venueName string) ([]ExamVenue, error)
	CreateExamVenue(ctx context.Context, ev *ExamVenue) (primitive.ObjectID, error)
	UpdateExamVenue(ctx context.Context, ev *ExamVenue) error
	DeleteExamVenue(ctx context.Context, id primitive.ObjectID) error
	ListPlaceholderExamVenues(ctx context.Context) ([]ExamVenue, error)
	RepointStudentExams(ctx context.Context, fromExamVenueID, toExamVenueID primitive.ObjectID) error

	// StudentExam
	FindStudentExam(ctx context.Context, studentID string, examID primitive.ObjectID) (*StudentExam, error)
	UpsertStudentExam(ctx context.Context, se *StudentExam) error

	// Provisions
	UpsertProvisions(ctx context.Context, p *Provisions) (created bool, err error)

	// UploadLog
	WriteUploadLog(ctx context.Context, log *UploadLog) error

	// Concurrency
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	LockVenue(ctx context.Context, venueName string) (unlock func(context.Context), err error)
}
