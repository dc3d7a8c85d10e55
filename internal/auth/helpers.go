package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var jwtKey = []byte(os.Getenv("JWT_KEY"))

// JWTClaims carries the fields the RBAC middleware and notification
// targeting need, in addition to the registered claims.
type JWTClaims struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	CMSID      string `json:"cms_id"`
	Role       string `json:"role"`
	School     string `json:"school"`
	Department string `json:"department"`
	Batch      string `json:"batch"`
	jwt.RegisteredClaims
}

func GenerateJWT(name, email, cmsID, role, school, department, batch string, duration time.Duration) (string, error) {
	claims := &JWTClaims{
		Name:       name,
		Email:      email,
		CMSID:      cmsID,
		Role:       role,
		School:     school,
		Department: department,
		Batch:      batch,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateJWT returns the token's email subject, the identifier
// downstream lookups (VerifyEmail, ResetPassword) key on.
func ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return "", errors.New("Invalid token")
	}

	if claims.ExpiresAt.Before(time.Now()) {
		return "", errors.New("Token expired")
	}
	return claims.Email, nil
}

func GetJWTKey() []byte {
	return jwtKey
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
