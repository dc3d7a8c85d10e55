package auth

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	r := &UserRepository{collection: db.Collection("users")}
	if err := r.UniqueCMSIndex(context.Background()); err != nil {
		log.Println("Failed to create unique CMS ID index:", err)
	}
	return r
}

func (r *UserRepository) FindByCMS(ctx context.Context, cmsID string) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"cms_id": cmsID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			log.Println("User not found")
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("CMS ID already exists")
		}
		return err
	}
	return nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *User) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	return err
}

// FindByRolesAndFaculties returns every user whose role is in roles and
// whose school is in faculties (empty roles/faculties match everything),
// used to resolve a notification's recipient list.
func (r *UserRepository) FindByRolesAndFaculties(ctx context.Context, roles, faculties []string) ([]User, error) {
	filter := bson.M{}
	if len(roles) > 0 {
		filter["role"] = bson.M{"$in": roles}
	}
	if len(faculties) > 0 {
		filter["school"] = bson.M{"$in": faculties}
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find())
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UniqueCMSIndex ensures cms_id is unique among users that set it (staff
// and admin accounts leave it empty, so the index is partial).
func (r *UserRepository) UniqueCMSIndex(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "cms_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"cms_id": bson.M{"$gt": ""}}),
	})
	return err
}
