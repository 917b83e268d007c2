package triage

import (
	"time"

	"github.com/linnemanlabs/edtriage/internal/patient"
)

// Probabilities maps outcome name to a model-estimated probability in [0,1].
// The set of names is fixed by the deployed predictor variant.
type Probabilities map[string]float64

// Decision is the outcome of one triage request. Derived once, never mutated.
type Decision struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	Level         int            `json:"level"` // 1 most urgent .. 5 least urgent
	LevelName     string         `json:"level_name"`
	Zone          string         `json:"zone"`
	ZoneArea      string         `json:"zone_area"`
	Actions       []string       `json:"actions"`
	Rationale     []string       `json:"rationale"` // ordered, never empty
	RedFlags      []string       `json:"red_flags,omitempty"`
	Probabilities Probabilities  `json:"probabilities,omitempty"` // empty only on a pure red-flag decision
	Record        patient.Record `json:"record"`
	Warnings      []string       `json:"warnings,omitempty"` // non-fatal sink/oracle issues
	CreatedAt     time.Time      `json:"created_at"`
	Duration      float64        `json:"duration_seconds"`
}

// levelNames indexes display names by level-1.
var levelNames = [5]string{"Resuscitation", "Emergent", "Urgent", "Less-urgent", "Non-urgent"}

// LevelName returns the display name for a triage level, or "" if the level
// is outside 1..5.
func LevelName(level int) string {
	if level < 1 || level > 5 {
		return ""
	}
	return levelNames[level-1]
}
