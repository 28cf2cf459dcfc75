// Package model defines the entities persisted per user.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Note is a free-form journal entry.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNote creates a note owned by a user.
func NewNote(userID, title, content string) Note {
	now := time.Now().UTC()
	return Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NoteUpdate carries a partial note change; nil fields are left untouched.
type NoteUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}
