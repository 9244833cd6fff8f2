package domain

import (
	"strings"
	"time"
)

type User struct {
	ID                 string    `json:"_id" bson:"_id"`
	Name               string    `json:"name" bson:"name"`
	Email              string    `json:"email" bson:"email"`
	Mobile             string    `json:"mobile,omitempty" bson:"mobile,omitempty"`
	PasswordHash       string    `json:"-" bson:"password_hash"`
	Tokens             []string  `json:"-" bson:"tokens"`
	ResetCode          string    `json:"-" bson:"reset_code,omitempty"`
	ResetCodeExpiresAt time.Time `json:"-" bson:"reset_code_expires_at,omitempty"`
	ResetAttempts      int       `json:"-" bson:"reset_attempts,omitempty"`
	CreatedAt          time.Time `json:"createdAt" bson:"created_at"`
}

func (u *User) Purchaser() Purchaser {
	return Purchaser{Email: u.Email, UserID: u.ID}
}

// NormalizeEmail trims and lower-cases an address before any lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
