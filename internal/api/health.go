package api

import (
	"net/http"
	"time"

	"github.com/lapaas/roughcut/internal/media"
	"github.com/lapaas/roughcut/internal/runtimes"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	runner    *media.Runner
	caps      runtimes.Capabilities
	version   string
	startTime time.Time
}

func NewHealthHandler(runner *media.Runner, caps runtimes.Capabilities, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		runner:    runner,
		caps:      caps,
		version:   version,
		startTime: startTime,
	}
}

// ServeHTTP reports process health plus the capability snapshot taken at
// startup. Missing capabilities degrade the status but never fail it: the
// pipeline can run synthetic-only.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"ffmpeg":         checkmark(h.runner != nil),
		"local_asr":      checkmark(h.caps.HasLocal()),
		"api_credential": checkmark(h.caps.HasAPIKey()),
		"llm_credential": checkmark(h.caps.OpenRouterKey),
	}

	status := "ok"
	if !h.caps.HasLocal() && !h.caps.HasAPIKey() {
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}

func checkmark(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}
