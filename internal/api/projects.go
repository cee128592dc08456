package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/media"
	"github.com/lapaas/roughcut/internal/pipeline"
	"github.com/lapaas/roughcut/internal/project"
	"github.com/lapaas/roughcut/internal/stage"
)

// ProjectsHandler serves project CRUD, run triggers and artifact reads.
type ProjectsHandler struct {
	store    *project.Store
	pipe     *pipeline.Pipeline
	mediaDir string
	baseCtx  context.Context
	log      zerolog.Logger
}

func NewProjectsHandler(baseCtx context.Context, store *project.Store, pipe *pipeline.Pipeline, mediaDir string, log zerolog.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		store:    store,
		pipe:     pipe,
		mediaDir: mediaDir,
		baseCtx:  baseCtx,
		log:      log.With().Str("component", "api").Logger(),
	}
}

func (h *ProjectsHandler) Routes(r chi.Router) {
	r.Post("/projects", h.Create)
	r.Get("/projects", h.List)
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/run", h.Run)
		r.Get("/status", h.Status)
		r.Get("/transcript", h.artifact("transcript.json"))
		r.Get("/cut-plan", h.artifact("cut-plan.json"))
		r.Get("/timeline", h.artifact("timeline.json"))
		r.Get("/retention-plan", h.artifact("high-retention-plan.json"))
		r.Get("/telemetry", h.Telemetry)
	})
}

type createProjectRequest struct {
	Name     string           `json:"name"`
	Settings project.Settings `json:"settings"`
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	p, err := h.store.Create(req.Name, req.Settings)
	if err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "project create failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r, 50, 400)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	projects, err := h.store.List()
	if err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "project list failed", err.Error())
		return
	}
	if len(projects) > limit {
		projects = projects[len(projects)-limit:]
	}
	WriteJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(chi.URLParam(r, "projectID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

type runRequest struct {
	SourcePath string `json:"sourcePath"`
}

// Run kicks off the pipeline in the background and returns immediately;
// progress is visible through the status endpoint.
func (h *ProjectsHandler) Run(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.SourcePath == "" {
		WriteError(w, http.StatusBadRequest, "sourcePath is required")
		return
	}
	source := media.ResolveSource(h.mediaDir, req.SourcePath)
	if source == "" {
		WriteError(w, http.StatusBadRequest, "source not found: "+req.SourcePath)
		return
	}
	if _, err := h.store.Get(projectID); err != nil {
		writeStoreError(w, err)
		return
	}

	go func() {
		if _, err := h.pipe.Run(h.baseCtx, projectID, source); err != nil {
			h.log.Error().Err(err).Str("projectId", projectID).Msg("pipeline run failed")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"projectId": projectID,
		"status":    project.StatusTranscribing,
	})
}

func (h *ProjectsHandler) Status(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var status project.StatusFile
	if err := h.store.ReadArtifact(projectID, "status.json", &status); err == nil {
		WriteJSON(w, http.StatusOK, status)
		return
	}

	// No run yet; report the stored project state.
	p, err := h.store.Get(projectID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, project.StatusFile{
		ProjectID: p.ID,
		Status:    p.Status,
		UpdatedAt: p.UpdatedAt,
	})
}

// artifact returns a handler serving a stored JSON artifact verbatim.
func (h *ProjectsHandler) artifact(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		var raw json.RawMessage
		if err := h.store.ReadArtifact(projectID, name, &raw); err != nil {
			if os.IsNotExist(err) {
				WriteError(w, http.StatusNotFound, name+" not available for this project")
				return
			}
			WriteErrorDetail(w, http.StatusInternalServerError, "artifact read failed", err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, raw)
	}
}

func (h *ProjectsHandler) Telemetry(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	limit, err := ParseLimit(r, 80, 400)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, events, err := h.store.ReadTelemetry(projectID, limit)
	if err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "telemetry read failed", err.Error())
		return
	}
	if events == nil {
		events = []stage.Event{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"projectId":    projectID,
		"summary":      summary,
		"recentEvents": events,
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	var notFound project.ErrNotFound
	if errors.As(err, &notFound) {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteErrorDetail(w, http.StatusInternalServerError, "project store error", err.Error())
}
