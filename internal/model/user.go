package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. PasswordHash is a bcrypt digest and is never returned
// over the API.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser creates a user with a fresh id.
func NewUser(email, name, passwordHash string) User {
	return User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}
