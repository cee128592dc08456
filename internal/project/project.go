package project

import (
	"fmt"
	"time"
)

// Run statuses. ROUGH_CUT_PLAN_READY and ROUGH_CUT_FAILED are terminal.
const (
	StatusStarted      = "STARTED"
	StatusTranscribing = "TRANSCRIPTION_IN_PROGRESS"
	StatusPlanReady    = "ROUGH_CUT_PLAN_READY"
	StatusFailed       = "ROUGH_CUT_FAILED"
)

var transitions = map[string][]string{
	StatusStarted:      {StatusTranscribing, StatusFailed},
	StatusTranscribing: {StatusPlanReady, StatusFailed},
}

// ValidTransition reports whether a status change is allowed by the run
// state machine.
func ValidTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Settings are the per-project editing preferences supplied at creation.
type Settings struct {
	AspectRatio        string `json:"aspectRatio"`
	FPS                int    `json:"fps"`
	Resolution         string `json:"resolution"`
	Language           string `json:"language"`
	AIMode             string `json:"aiMode"`
	FallbackPolicy     string `json:"fallbackPolicy,omitempty"`
	TranscriptionModel string `json:"transcriptionModel,omitempty"`
	CutPlannerModel    string `json:"cutPlannerModel,omitempty"`
	TemplateModel      string `json:"templatePlannerModel,omitempty"`
}

// Project is one stored editing project.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Settings  Settings  `json:"settings"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusFile is the job-status artifact written after every run, success or
// failure.
type StatusFile struct {
	ProjectID string            `json:"projectId"`
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	StageMs   map[string]int64  `json:"stageMs,omitempty"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ErrNotFound is returned for unknown project ids.
type ErrNotFound struct{ ID string }

func (e ErrNotFound) Error() string { return fmt.Sprintf("project %s not found", e.ID) }
