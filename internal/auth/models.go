package auth

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is an account belonging to a staff member, admin, or student. School
// is the exam_school a staff member belongs to (students leave it empty).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	CMSID        string             `bson:"cms_id"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Verified     bool               `bson:"verified"`
	ResetToken   string             `bson:"reset_token,omitempty"`
	Role         string             `bson:"role"`
	School       string             `bson:"school,omitempty"`
	Department   string             `bson:"department,omitempty"`
	Batch        string             `bson:"batch,omitempty"`
}

type RegisterRequest struct {
	CMSID      string `json:"cms_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	School     string `json:"school"`
	Department string `json:"department"`
	Batch      string `json:"batch"`
}

// Credential logs in by either email (staff/admin) or CMS ID (student).
type Credential struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
