package model

import (
	"time"

	"github.com/google/uuid"
)

// StateMetrics holds the ten psychophysiological scores, each on a 0-10
// scale. The zero value is not meaningful; use DefaultStateMetrics.
type StateMetrics struct {
	Dopamine      float64 `json:"dopamine"`
	Serotonin     float64 `json:"serotonin"`
	GABA          float64 `json:"gaba"`
	Noradrenaline float64 `json:"noradrenaline"`
	Cortisol      float64 `json:"cortisol"`
	Testosterone  float64 `json:"testosterone"`
	PFCActivity   float64 `json:"pfc_activity"`
	Focus         float64 `json:"focus"`
	Energy        float64 `json:"energy"`
	Motivation    float64 `json:"motivation"`
}

// DefaultStateMetrics returns every metric at the neutral midpoint.
func DefaultStateMetrics() StateMetrics {
	return StateMetrics{
		Dopamine:      5.0,
		Serotonin:     5.0,
		GABA:          5.0,
		Noradrenaline: 5.0,
		Cortisol:      5.0,
		Testosterone:  5.0,
		PFCActivity:   5.0,
		Focus:         5.0,
		Energy:        5.0,
		Motivation:    5.0,
	}
}

// StateSnapshot is one immutable analysis record. History is append-only;
// the latest snapshot by created_at is "current".
type StateSnapshot struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Metrics   StateMetrics `json:"metrics"`
	Analysis  string       `json:"analysis"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewStateSnapshot creates a snapshot with a fresh id and timestamp.
func NewStateSnapshot(userID string, metrics StateMetrics, analysis string) StateSnapshot {
	return StateSnapshot{
		ID:        uuid.NewString(),
		UserID:    userID,
		Metrics:   metrics,
		Analysis:  analysis,
		CreatedAt: time.Now().UTC(),
	}
}
