package models

import "time"

// Attempt is a finished exercise recorded in the trainee's history
type Attempt struct {
	ID          int64
	TraineeID   string
	Part        Part
	Title       string
	Score       int
	Total       int
	TimedOut    bool
	ElapsedMs   int64
	CompletedAt time.Time
}

// Accuracy returns the percentage of correct answers
func (a Attempt) Accuracy() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Score) / float64(a.Total) * 100
}

// Snapshot mirrors the current exercise record of one part.
// It carries no start time or time limit.
type Snapshot struct {
	ActivePart Part              `json:"active_part"`
	Data       map[string]string `json:"data"`
}
