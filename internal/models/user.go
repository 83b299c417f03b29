package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/validation"
)

const DefaultAge = 18

type Token struct {
	Token string `bson:"token"`
}

// User is a stored account. Password holds the bcrypt hash, never the
// plaintext. Password, Tokens and Avatar are excluded from JSON output.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Age       int                `bson:"age" json:"age"`
	Tokens    []Token            `bson:"tokens" json:"-"`
	Avatar    []byte             `bson:"avatar,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasToken reports whether token is one of the user's active sessions.
func (u User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t.Token == token {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the stored profile fields. The password is validated as
// plaintext by ValidatePassword before hashing.
func (u User) Validate() validation.Result {
	var r validation.Result
	r.Check("name", strings.TrimSpace(u.Name), "required")
	r.Check("email", u.Email, "required,email")
	r.Check("age", u.Age, "gte=0")
	return r
}

func ValidatePassword(plain string) validation.Result {
	var r validation.Result
	r.Check("password", strings.TrimSpace(plain), "required,min=9,maxbytes=72,nopassword")
	return r
}
