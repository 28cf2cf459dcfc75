package model

import (
	"time"

	"github.com/google/uuid"
)

// ChecklistItem is one entry of a daily checklist.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// NewChecklistItem creates an unchecked item.
func NewChecklistItem(text string) ChecklistItem {
	return ChecklistItem{ID: uuid.NewString(), Text: text}
}

// ChecklistTemplate is a reusable named list of task texts.
type ChecklistTemplate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Items     []string  `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChecklistTemplate creates a template owned by a user.
func NewChecklistTemplate(userID, name string, items []string) ChecklistTemplate {
	return ChecklistTemplate{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
}

// DailyChecklist is the checklist for one calendar day (YYYY-MM-DD).
type DailyChecklist struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Date       string          `json:"date"`
	Items      []ChecklistItem `json:"items"`
	TemplateID string          `json:"template_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewDailyChecklist creates a checklist for a date.
func NewDailyChecklist(userID, date string, items []ChecklistItem, templateID string) DailyChecklist {
	return DailyChecklist{
		ID:         uuid.NewString(),
		UserID:     userID,
		Date:       date,
		Items:      items,
		TemplateID: templateID,
		CreatedAt:  time.Now().UTC(),
	}
}
