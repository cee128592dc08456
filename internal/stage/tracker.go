package stage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/metrics"
)

// Event is one recorded stage execution, appended to the project's
// telemetry event log.
type Event struct {
	Stage      string    `json:"stage"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

// Summary is the per-run telemetry artifact (telemetry/summary.json).
type Summary struct {
	ProjectID  string           `json:"projectId"`
	Status     string           `json:"status"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	StageMs    map[string]int64 `json:"stageMs"`
	Order      []string         `json:"order"`
}

// Tracker records wall-clock duration of named pipeline stages. Safe for
// concurrent use; stages that run in parallel each get their own entry.
type Tracker struct {
	mu        sync.Mutex
	startedAt time.Time
	order     []string
	durations map[string]time.Duration
	events    []Event
	log       zerolog.Logger
}

func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		startedAt: time.Now().UTC(),
		durations: make(map[string]time.Duration),
		log:       log.With().Str("component", "stage").Logger(),
	}
}

// Run executes fn under the given stage name, recording its duration
// whether or not it fails.
func (t *Tracker) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	ev := Event{Stage: name, StartedAt: start.UTC(), DurationMs: elapsed.Milliseconds()}
	if err != nil {
		ev.Error = err.Error()
	}

	t.mu.Lock()
	if _, seen := t.durations[name]; !seen {
		t.order = append(t.order, name)
	}
	t.durations[name] += elapsed
	t.events = append(t.events, ev)
	t.mu.Unlock()

	logEv := t.log.Info()
	if err != nil {
		logEv = t.log.Error().Err(err)
	}
	logEv.Str("stage", name).Dur("elapsed", elapsed).Msg("stage finished")
	return err
}

// Snapshot returns accumulated stage durations in milliseconds.
func (t *Tracker) Snapshot() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.durations))
	for name, d := range t.durations {
		out[name] = d.Milliseconds()
	}
	return out
}

// Events returns the recorded stage events in execution order.
func (t *Tracker) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Summary finalizes the run's telemetry.
func (t *Tracker) Summary(projectID, status string) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	stageMs := make(map[string]int64, len(t.durations))
	for name, d := range t.durations {
		stageMs[name] = d.Milliseconds()
	}
	return Summary{
		ProjectID:  projectID,
		Status:     status,
		StartedAt:  t.startedAt,
		FinishedAt: time.Now().UTC(),
		StageMs:    stageMs,
		Order:      append([]string(nil), t.order...),
	}
}
