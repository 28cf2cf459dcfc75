package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles a chat turn can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a single message within a session. Turns are append-only and
// never edited after creation.
type ChatTurn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatTurn creates a turn with a fresh id and timestamp.
func NewChatTurn(role, content string) ChatTurn {
	return ChatTurn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// ChatSession is one conversation thread. RunningSummary, when present, is a
// digest of the turns that have been evicted from the active model context.
type ChatSession struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title"`
	Turns          []ChatTurn `json:"turns"`
	RunningSummary string     `json:"running_summary,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewChatSession creates an empty session for a user.
func NewChatSession(userID, title string) ChatSession {
	now := time.Now().UTC()
	return ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Turns:     []ChatTurn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChecklistSuggestion is the AI's task proposal derived from a dialog.
type ChecklistSuggestion struct {
	Items     []string `json:"items"`
	Reasoning string   `json:"reasoning"`
}
