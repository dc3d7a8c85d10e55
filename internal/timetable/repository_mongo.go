package timetable

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/glasgow-exams/timetable-ingest/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository is the Mongo-backed Repository implementation,
// following the teacher's one-struct-one-collection-field shape
// (internal/auth.UserRepository, the former internal/seating
// repository) generalized onto the upsert-by-natural-key pattern this
// domain needs.
type MongoRepository struct {
	client          *mongo.Client
	exams           *mongo.Collection
	venues          *mongo.Collection
	students        *mongo.Collection
	examVenues      *mongo.Collection
	studentExams    *mongo.Collection
	provisions      *mongo.Collection
	uploadLogs      *mongo.Collection
	venueLocks      *mongo.Collection
}

// NewMongoRepository wires the timetable collections and creates the
// unique indexes the data model's natural keys require, the way
// (*auth.UserRepository).UniqueCMSIndex does for the users collection.
func NewMongoRepository(mc *config.MongoDBClient) *MongoRepository {
	db := mc.Database
	r := &MongoRepository{
		client:       mc.Client,
		exams:        db.Collection("exams"),
		venues:       db.Collection("venues"),
		students:     db.Collection("students"),
		examVenues:   db.Collection("exam_venues"),
		studentExams: db.Collection("student_exams"),
		provisions:   db.Collection("provisions"),
		uploadLogs:   db.Collection("upload_logs"),
		venueLocks:   db.Collection("venue_locks"),
	}
	r.ensureIndexes()
	return r
}

func (r *MongoRepository) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uniqueIndexes := []struct {
		collection *mongo.Collection
		keys       bson.D
	}{
		{r.exams, bson.D{{Key: "course_code", Value: 1}}},
		{r.studentExams, bson.D{{Key: "student_id", Value: 1}, {Key: "exam_id", Value: 1}}},
		{r.provisions, bson.D{{Key: "student_id", Value: 1}, {Key: "exam_id", Value: 1}}},
	}
	for _, idx := range uniqueIndexes {
		_, err := idx.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    idx.keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			log.Printf("timetable: failed to create unique index on %s: %v", idx.collection.Name(), err)
		}
	}

	ttlCtx, ttlCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ttlCancel()
	_, err := r.venueLocks.Indexes().CreateOne(ttlCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "acquired_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(30),
	})
	if err != nil {
		log.Printf("timetable: failed to create venue_locks TTL index: %v", err)
	}
}

// UpsertExamByCode upserts by the course_code natural key. "created" is
// detected via $setOnInsert on a freshly generated id: if Mongo reports
// an UpsertedID, this write inserted; otherwise it matched an existing row.
func (r *MongoRepository) UpsertExamByCode(ctx context.Context, exam *Exam) (primitive.ObjectID, bool, error) {
	filter := bson.M{"course_code": exam.CourseCode}
	update := bson.M{
		"$set": bson.M{
			"exam_name":      exam.ExamName,
			"exam_type":      exam.ExamType,
			"no_students":    exam.NoStudents,
			"exam_school":    exam.ExamSchool,
			"school_contact": exam.SchoolContact,
			"exam_date":      exam.ExamDate,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	result, err := r.exams.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	if result.UpsertedID != nil {
		return result.UpsertedID.(primitive.ObjectID), true, nil
	}
	existing, err := r.FindExamByCode(ctx, exam.CourseCode)
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	return existing.ID, false, nil
}

func (r *MongoRepository) FindExamByCode(ctx context.Context, courseCode string) (*Exam, error) {
	var exam Exam
	err := r.exams.FindOne(ctx, bson.M{"course_code": courseCode}).Decode(&exam)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &exam, nil
}

func (r *MongoRepository) FindExamByID(ctx context.Context, id primitive.ObjectID) (*Exam, error) {
	var exam Exam
	err := r.exams.FindOne(ctx, bson.M{"_id": id}).Decode(&exam)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &exam, nil
}

func (r *MongoRepository) ListExams(ctx context.Context) ([]Exam, error) {
	cursor, err := r.exams.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var exams []Exam
	if err := cursor.All(ctx, &exams); err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *MongoRepository) FindVenueByName(ctx context.Context, name string) (*Venue, error) {
	var venue Venue
	err := r.venues.FindOne(ctx, bson.M{"_id": name}).Decode(&venue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &venue, nil
}

func (r *MongoRepository) CreateVenue(ctx context.Context, venue *Venue) error {
	_, err := r.venues.InsertOne(ctx, venue)
	return err
}

func (r *MongoRepository) UpdateVenue(ctx context.Context, venue *Venue) error {
	sort.Strings(venue.Availability)
	_, err := r.venues.ReplaceOne(ctx, bson.M{"_id": venue.VenueName}, venue)
	return err
}

func (r *MongoRepository) ListVenues(ctx context.Context) ([]Venue, error) {
	cursor, err := r.venues.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var venues []Venue
	if err := cursor.All(ctx, &venues); err != nil {
		return nil, err
	}
	return venues, nil
}

func (r *MongoRepository) UpsertStudent(ctx context.Context, student *Student) (bool, error) {
	filter := bson.M{"_id": student.StudentID}
	existing, err := r.students.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	update := bson.M{"$set": bson.M{"student_name": student.StudentName}}
	_, err = r.students.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return existing == 0, nil
}

func (r *MongoRepository) FindExamVenuesByExam(ctx context.Context, examID primitive.ObjectID) ([]ExamVenue, error) {
	cursor, err := r.examVenues.Find(ctx, bson.M{"exam_id": examID})
	if err != nil {
		return nil, err
	}
	var evs []ExamVenue
	if err := cursor.All(ctx, &evs); err != nil {
		return nil, err
	}
	return evs, nil
}

func (r *MongoRepository) FindExamVenueByID(ctx context.Context, id primitive.ObjectID) (*ExamVenue, error) {
	var ev ExamVenue
	err := r.examVenues.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

func (r *MongoRepository) FindOtherExamVenuesAtVenue(ctx context.Context, venueName string) ([]ExamVenue, error) {
	cursor, err := r.examVenues.Find(ctx, bson.M{"venue_name": venueName})
	if err != nil {
		return nil, err
	}
	var evs []ExamVenue
	if err := cursor.All(ctx, &evs); err != nil {
		return nil, err
	}
	return evs, nil
}

func (r *MongoRepository) CreateExamVenue(ctx context.Context, ev *ExamVenue) (primitive.ObjectID, error) {
	ev.ID = primitive.NewObjectID()
	_, err := r.examVenues.InsertOne(ctx, ev)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return ev.ID, nil
}

func (r *MongoRepository) UpdateExamVenue(ctx context.Context, ev *ExamVenue) error {
	_, err := r.examVenues.ReplaceOne(ctx, bson.M{"_id": ev.ID}, ev)
	return err
}

func (r *MongoRepository) DeleteExamVenue(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.examVenues.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) ListPlaceholderExamVenues(ctx context.Context) ([]ExamVenue, error) {
	cursor, err := r.examVenues.Find(ctx, bson.M{"venue_name": nil})
	if err != nil {
		return nil, err
	}
	var evs []ExamVenue
	if err := cursor.All(ctx, &evs); err != nil {
		return nil, err
	}
	return evs, nil
}

func (r *MongoRepository) RepointStudentExams(ctx context.Context, fromExamVenueID, toExamVenueID primitive.ObjectID) error {
	_, err := r.studentExams.UpdateMany(ctx,
		bson.M{"exam_venue_id": fromExamVenueID},
		bson.M{"$set": bson.M{"exam_venue_id": toExamVenueID}},
	)
	return err
}

func (r *MongoRepository) FindStudentExam(ctx context.Context, studentID string, examID primitive.ObjectID) (*StudentExam, error) {
	var se StudentExam
	err := r.studentExams.FindOne(ctx, bson.M{"student_id": studentID, "exam_id": examID}).Decode(&se)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &se, nil
}

func (r *MongoRepository) UpsertStudentExam(ctx context.Context, se *StudentExam) error {
	filter := bson.M{"student_id": se.StudentID, "exam_id": se.ExamID}
	update := bson.M{"$set": bson.M{"exam_venue_id": se.ExamVenueID}}
	_, err := r.studentExams.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoRepository) UpsertProvisions(ctx context.Context, p *Provisions) (bool, error) {
	filter := bson.M{"student_id": p.StudentID, "exam_id": p.ExamID}
	existing, err := r.provisions.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	update := bson.M{"$set": bson.M{"provisions": p.Codes, "notes": p.Notes}}
	_, err = r.provisions.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return existing == 0, nil
}

func (r *MongoRepository) WriteUploadLog(ctx context.Context, log *UploadLog) error {
	log.UploadedAt = time.Now()
	_, err := r.uploadLogs.InsertOne(ctx, log)
	return err
}

// WithTransaction runs fn inside a Mongo client-session transaction, the
// direct analogue of the source system's `@transaction.atomic`. Requires
// the backing deployment to run as a replica set.
func (r *MongoRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// LockVenue acquires a short-lived advisory lease on a venue name so two
// concurrent uploads don't both allocate the same placeholder (spec §5).
// The lease document carries a TTL index as the unlock fallback in case a
// caller never releases it.
func (r *MongoRepository) LockVenue(ctx context.Context, venueName string) (func(context.Context), error) {
	filter := bson.M{"_id": venueName}
	update := bson.M{"$setOnInsert": bson.M{"acquired_at": time.Now()}}
	opts := options.Update().SetUpsert(true)

	for {
		_, err := r.venueLocks.UpdateOne(ctx, filter, update, opts)
		if err == nil {
			break
		}
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		return nil, err
	}

	unlock := func(unlockCtx context.Context) {
		_, _ = r.venueLocks.DeleteOne(unlockCtx, filter)
	}
	return unlock, nil
}
