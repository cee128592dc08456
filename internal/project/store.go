package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/stage"
)

// Store persists projects and their run artifacts under a data directory:
//
//	<dataDir>/projects.json
//	<dataDir>/<projectId>/<artifact files>
//	<dataDir>/<projectId>/telemetry/summary.json
//	<dataDir>/<projectId>/telemetry/events.jsonl
type Store struct {
	mu  sync.Mutex
	dir string
	log zerolog.Logger
}

func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir, log: log.With().Str("component", "store").Logger()}
	path := s.indexPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
			return nil, fmt.Errorf("init projects store: %w", err)
		}
	}
	return s, nil
}

func (s *Store) indexPath() string { return filepath.Join(s.dir, "projects.json") }

// ProjectDir returns (and creates) the per-project artifact directory.
func (s *Store) ProjectDir(id string) (string, error) {
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) load() ([]Project, error) {
	raw, err := os.ReadFile(s.indexPath())
	if err != nil {
		return nil, fmt.Errorf("read projects store: %w", err)
	}
	var projects []Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("parse projects store: %w", err)
	}
	return projects, nil
}

func (s *Store) save(projects []Project) error {
	raw, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.indexPath(), append(raw, '\n'))
}

// Create registers a new project in STARTED state.
func (s *Store) Create(name string, settings Settings) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := Project{
		ID:        uuid.NewString(),
		Name:      name,
		Settings:  settings,
		Status:    StatusStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	projects = append(projects, p)
	if err := s.save(projects); err != nil {
		return nil, err
	}
	if _, err := s.ProjectDir(p.ID); err != nil {
		return nil, err
	}
	s.log.Info().Str("projectId", p.ID).Str("name", name).Msg("project created")
	return &p, nil
}

func (s *Store) Get(id string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrNotFound{ID: id}
}

func (s *Store) List() ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// SetStatus advances a project through the run state machine; illegal
// transitions are rejected.
func (s *Store) SetStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load()
	if err != nil {
		return err
	}
	for i := range projects {
		if projects[i].ID != id {
			continue
		}
		if !ValidTransition(projects[i].Status, status) {
			return fmt.Errorf("illegal status transition %s -> %s for project %s",
				projects[i].Status, status, id)
		}
		projects[i].Status = status
		projects[i].UpdatedAt = time.Now().UTC()
		return s.save(projects)
	}
	return ErrNotFound{ID: id}
}

// ResetStatus puts a terminal project back to STARTED so it can be re-run.
func (s *Store) ResetStatus(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load()
	if err != nil {
		return err
	}
	for i := range projects {
		if projects[i].ID != id {
			continue
		}
		projects[i].Status = StatusStarted
		projects[i].UpdatedAt = time.Now().UTC()
		return s.save(projects)
	}
	return ErrNotFound{ID: id}
}

// ActiveRuns implements metrics.RunStats.
func (s *Store) ActiveRuns() int {
	projects, err := s.List()
	if err != nil {
		return 0
	}
	n := 0
	for _, p := range projects {
		if p.Status == StatusTranscribing {
			n++
		}
	}
	return n
}

// ProjectCount implements metrics.RunStats.
func (s *Store) ProjectCount() int {
	projects, err := s.List()
	if err != nil {
		return 0
	}
	return len(projects)
}

// WriteArtifact stores a JSON artifact in the project directory and returns
// its path.
func (s *Store) WriteArtifact(id, name string, v any) (string, error) {
	dir, err := s.ProjectDir(id)
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, append(raw, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRawArtifact stores a pre-rendered artifact (subtitles etc.).
func (s *Store) WriteRawArtifact(id, name string, data []byte) (string, error) {
	dir, err := s.ProjectDir(id)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadArtifact loads a previously written JSON artifact into v.
func (s *Store) ReadArtifact(id, name string, v any) error {
	raw, err := os.ReadFile(filepath.Join(s.dir, id, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// WriteTelemetry stores the run summary and appends stage events to the
// project's event log.
func (s *Store) WriteTelemetry(id string, summary stage.Summary, events []stage.Event) error {
	dir, err := s.ProjectDir(id)
	if err != nil {
		return err
	}
	telemetryDir := filepath.Join(dir, "telemetry")
	if err := os.MkdirAll(telemetryDir, 0o755); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(telemetryDir, "summary.json"), append(raw, '\n')); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(telemetryDir, "events.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

// ReadTelemetry returns the stored summary (nil when absent) and up to
// limit most recent events, newest first.
func (s *Store) ReadTelemetry(id string, limit int) (*stage.Summary, []stage.Event, error) {
	telemetryDir := filepath.Join(s.dir, id, "telemetry")

	var summary *stage.Summary
	if raw, err := os.ReadFile(filepath.Join(telemetryDir, "summary.json")); err == nil {
		summary = &stage.Summary{}
		if err := json.Unmarshal(raw, summary); err != nil {
			return nil, nil, fmt.Errorf("parse telemetry summary: %w", err)
		}
	}

	var events []stage.Event
	if raw, err := os.ReadFile(filepath.Join(telemetryDir, "events.jsonl")); err == nil {
		lines := splitLines(raw)
		for i := len(lines) - 1; i >= 0 && len(events) < limit; i-- {
			var ev stage.Event
			if json.Unmarshal(lines[i], &ev) == nil {
				events = append(events, ev)
			}
		}
	}
	return summary, events, nil
}

func splitLines(raw []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range raw {
		if b == '\n' {
			if i > start {
				lines = append(lines, raw[start:i])
			}
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, raw[start:])
	}
	return lines
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
