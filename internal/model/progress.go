package model

import "time"

// RunProgress снимок состояния текущего прогона
type RunProgress struct {
	RunID     string    `json:"run_id"`
	Phase     string    `json:"phase"`
	Total     int       `json:"total"`
	Done      int       `json:"done"`
	Failed    int       `json:"failed"`
	Stalled   int       `json:"stalled"`
	StartedAt time.Time `json:"started_at"`
}

// Фазы прогона
const (
	PhaseIdle       = "idle"
	PhaseListing    = "listing"
	PhaseProcessing = "processing"
	PhaseSaving     = "saving"
	PhaseDone       = "done"
)
