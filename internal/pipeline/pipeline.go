package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/config"
	"github.com/lapaas/roughcut/internal/cutplan"
	"github.com/lapaas/roughcut/internal/llmplan"
	"github.com/lapaas/roughcut/internal/media"
	"github.com/lapaas/roughcut/internal/metrics"
	"github.com/lapaas/roughcut/internal/project"
	"github.com/lapaas/roughcut/internal/retention"
	"github.com/lapaas/roughcut/internal/runtimes"
	"github.com/lapaas/roughcut/internal/stage"
	"github.com/lapaas/roughcut/internal/transcribe"
	"github.com/lapaas/roughcut/internal/transcript"
)

const (
	silenceNoiseDb = -30
	silenceMinDur  = 800 * time.Millisecond

	defaultFPS = 30
)

// Pipeline runs the fixed stage sequence for one project: probe, adapter
// selection, chunked transcription, silence analysis, cut planning and the
// high-retention plan. Configuration errors abort before any stage; every
// other failure degrades through a fallback and ends in warnings.
type Pipeline struct {
	cfg    *config.Config
	store  *project.Store
	runner *media.Runner
	caps   runtimes.Capabilities
	log    zerolog.Logger
}

func New(cfg *config.Config, store *project.Store, log zerolog.Logger) *Pipeline {
	caps := runtimes.Detect(runtimes.ProbeSpec{
		PythonBin:         cfg.PythonBin,
		FasterWhisperPath: cfg.FasterWhisperPath,
		WhisperCppBin:     cfg.WhisperCppBin,
		WhisperCppModel:   cfg.WhisperCppModel,
		ElevenLabsAPIKey:  cfg.ElevenLabsAPIKey,
		DeepInfraAPIKey:   cfg.DeepInfraAPIKey,
		OpenRouterAPIKey:  cfg.OpenRouterAPIKey,
	}, log)
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		runner: media.NewRunner(cfg.FFmpegPath, cfg.FFprobePath),
		caps:   caps,
		log:    log.With().Str("component", "pipeline").Logger(),
	}
}

// Result reports a finished run.
type Result struct {
	ProjectID string            `json:"projectId"`
	Status    string            `json:"status"`
	Artifacts map[string]string `json:"artifacts"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// Run executes the full pipeline for an existing project over a local
// source file.
func (p *Pipeline) Run(ctx context.Context, projectID, sourcePath string) (*Result, error) {
	proj, err := p.store.Get(projectID)
	if err != nil {
		return nil, err
	}
	if proj.Status != project.StatusStarted {
		if err := p.store.ResetStatus(projectID); err != nil {
			return nil, err
		}
	}

	tracker := stage.NewTracker(p.log)
	run := &runState{
		project:   proj,
		source:    sourcePath,
		tracker:   tracker,
		artifacts: make(map[string]string),
	}

	// Adapter selection happens before any stage: configuration errors
	// abort without touching the media.
	desc, err := transcribe.Select(transcribe.SelectRequest{
		Mode:           firstNonEmpty(proj.Settings.AIMode, p.cfg.Mode),
		FallbackPolicy: firstNonEmpty(proj.Settings.FallbackPolicy, p.cfg.FallbackPolicy),
		Model:          proj.Settings.TranscriptionModel,
		Language:       firstNonEmpty(proj.Settings.Language, p.cfg.Language),
	}, p.caps, transcribe.ModelsFromConfig(p.cfg))
	if err != nil {
		// Configuration errors are terminal too: the status artifact is
		// written so a polling client sees the failure.
		return p.finishFailed(run, err)
	}
	run.descriptor = desc
	run.warnings = append(run.warnings, desc.Warnings...)

	if err := p.store.SetStatus(projectID, project.StatusTranscribing); err != nil {
		return nil, err
	}

	if err := p.execute(ctx, run); err != nil {
		return p.finishFailed(run, err)
	}
	return p.finishReady(run)
}

type runState struct {
	project    *project.Project
	source     string
	descriptor transcribe.Descriptor
	tracker    *stage.Tracker

	info       *media.Info
	transcript *transcript.Transcript
	silences   []media.SilenceRange
	plan       *cutplan.CutPlan

	artifacts map[string]string
	warnings  []string
}

func (p *Pipeline) execute(ctx context.Context, run *runState) error {
	if err := run.tracker.Run(ctx, "probe", func(ctx context.Context) error {
		info, err := p.runner.Probe(ctx, run.source)
		if err != nil {
			return err
		}
		run.info = info
		return nil
	}); err != nil {
		return fmt.Errorf("probe source: %w", err)
	}

	if err := run.tracker.Run(ctx, "transcribe", func(ctx context.Context) error {
		return p.transcribeStage(ctx, run)
	}); err != nil {
		return err
	}

	if err := p.writeTranscriptArtifacts(run); err != nil {
		return err
	}

	// Silence analysis is advisory: a failure costs silence-based cut
	// candidates, nothing more.
	_ = run.tracker.Run(ctx, "silence", func(ctx context.Context) error {
		silences, err := p.runner.DetectSilence(ctx, run.source, silenceNoiseDb, silenceMinDur)
		if err != nil {
			run.warnings = append(run.warnings, "silence detection failed: "+err.Error())
			return err
		}
		run.silences = silences
		return nil
	})

	if err := run.tracker.Run(ctx, "plan", func(ctx context.Context) error {
		return p.planStage(ctx, run)
	}); err != nil {
		return err
	}

	_ = run.tracker.Run(ctx, "retention", func(ctx context.Context) error {
		return p.retentionStage(ctx, run)
	})

	return nil
}

// transcribeStage runs the chunked engine for window-limited API providers
// and a single full-audio pass for local runtimes. Without a usable adapter,
// and when the engine itself fails, it falls back to a synthetic transcript,
// since planning can still proceed on silence alone.
func (p *Pipeline) transcribeStage(ctx context.Context, run *runState) error {
	src := transcript.Source{
		Path:       run.source,
		Ref:        filepath.Base(run.source),
		DurationUs: run.info.DurationUs,
	}

	if !run.descriptor.Usable() {
		run.transcript = transcribe.Synthetic(src, run.descriptor, run.project.ID, nil)
		return nil
	}

	provider, err := transcribe.NewProvider(run.descriptor, p.cfg)
	if err != nil {
		return err
	}
	opts := transcribe.Opts{
		Language: firstNonEmpty(run.project.Settings.Language, p.cfg.Language),
	}
	var resp *transcribe.Response
	var warnings []string
	if run.descriptor.Kind == "local" {
		resp, err = transcribe.SingleShot(ctx, p.runner, provider, run.source, opts)
	} else {
		engine := transcribe.NewChunkedEngine(p.runner, provider, p.log)
		resp, warnings, err = engine.Transcribe(ctx, run.source, run.info.DurationUs, opts)
	}
	metrics.TranscriptionChunksTotal.WithLabelValues("failed").Add(float64(len(warnings)))
	if err != nil {
		run.warnings = append(run.warnings, "transcription failed, synthesizing transcript: "+err.Error())
		run.transcript = transcribe.Synthetic(src, run.descriptor, run.project.ID, run.warnings)
		return nil
	}
	metrics.TranscriptionChunksTotal.WithLabelValues("ok").Inc()

	run.warnings = append(run.warnings, warnings...)
	tr := transcribe.Normalize(resp, src, run.descriptor, run.project.ID, warnings)
	if err := tr.Validate(); err != nil {
		return fmt.Errorf("canonical transcript invalid: %w", err)
	}
	run.transcript = tr
	return nil
}

func (p *Pipeline) writeTranscriptArtifacts(run *runState) error {
	path, err := p.store.WriteArtifact(run.project.ID, "transcript.json", run.transcript)
	if err != nil {
		return err
	}
	run.artifacts["transcript"] = path

	if srt := transcript.RenderSRT(run.transcript); srt != "" {
		if path, err := p.store.WriteRawArtifact(run.project.ID, "subtitles.srt", []byte(srt)); err == nil {
			run.artifacts["subtitlesSrt"] = path
		}
	}
	if vtt := transcript.RenderVTT(run.transcript); vtt != "" {
		if path, err := p.store.WriteRawArtifact(run.project.ID, "subtitles.vtt", []byte(vtt)); err == nil {
			run.artifacts["subtitlesVtt"] = path
		}
	}
	return nil
}

// planStage prefers the LLM planner and falls back to heuristics on any
// failure. The heuristic path has no external dependencies and cannot fail.
func (p *Pipeline) planStage(ctx context.Context, run *runState) error {
	mode := firstNonEmpty(run.project.Settings.AIMode, p.cfg.Mode)
	policy := firstNonEmpty(run.project.Settings.FallbackPolicy, p.cfg.FallbackPolicy)
	heuristic := cutplan.NewHeuristic(p.log)

	plan := heuristic.Plan(run.transcript, run.silences, mode, policy)

	model := firstNonEmpty(run.project.Settings.CutPlannerModel, p.cfg.CutPlannerModel)
	if p.cfg.OpenRouterAPIKey != "" && !run.transcript.Adapter.Synthetic {
		planner := llmplan.NewPlanner(p.cfg.OpenRouterAPIKey, p.cfg.OpenRouterBaseURL, model, p.log)
		result, err := planner.Plan(ctx, run.transcript)
		if err != nil {
			metrics.LLMRequestsTotal.WithLabelValues("failed").Inc()
			run.warnings = append(run.warnings, "llm planner failed, using heuristic plan: "+err.Error())
		} else {
			metrics.LLMRequestsTotal.WithLabelValues("ok").Inc()
			plan.Planner = cutplan.PlannerInfo{Model: model, Strategy: "llm"}
			plan.RemoveRanges = cutplan.ClampRanges(result.RemoveRanges, run.transcript.Source.DurationUs)
			plan.Rationale = append(plan.Rationale, result.Rationale...)
			if result.Discarded > 0 {
				run.warnings = append(run.warnings,
					fmt.Sprintf("discarded %d out-of-range planner suggestions", result.Discarded))
			}
		}
	}

	path, err := p.store.WriteArtifact(run.project.ID, "cut-plan.json", plan)
	if err != nil {
		return err
	}
	run.artifacts["cutPlan"] = path
	run.plan = plan

	fps := run.project.Settings.FPS
	if fps < 1 {
		fps = defaultFPS
	}
	timeline := cutplan.BuildTimeline(run.project.ID, run.transcript.Source.DurationUs, fps,
		run.source, plan.RemoveRanges)
	if path, err := p.store.WriteArtifact(run.project.ID, "timeline.json", timeline); err == nil {
		run.artifacts["timeline"] = path
	}
	return nil
}

func (p *Pipeline) retentionStage(ctx context.Context, run *runState) error {
	model := firstNonEmpty(run.project.Settings.TemplateModel, p.cfg.TemplateModel)
	planner := retention.NewPlanner(p.cfg.OpenRouterAPIKey, p.cfg.OpenRouterBaseURL, model, p.log)
	plan, err := planner.Plan(ctx, run.transcript)
	if err != nil {
		run.warnings = append(run.warnings, "high-retention plan skipped: "+err.Error())
		return err
	}
	path, err := p.store.WriteArtifact(run.project.ID, "high-retention-plan.json", plan)
	if err != nil {
		return err
	}
	run.artifacts["highRetentionPlan"] = path
	return nil
}

func (p *Pipeline) finishReady(run *runState) (*Result, error) {
	id := run.project.ID
	status := project.StatusPlanReady

	statusFile := project.StatusFile{
		ProjectID: id,
		Status:    status,
		StageMs:   run.tracker.Snapshot(),
		Artifacts: run.artifacts,
		Warnings:  run.warnings,
		UpdatedAt: time.Now().UTC(),
	}
	if path, err := p.store.WriteArtifact(id, "status.json", statusFile); err == nil {
		run.artifacts["status"] = path
	}
	if err := p.store.SetStatus(id, status); err != nil {
		return nil, err
	}
	if err := p.store.WriteTelemetry(id, run.tracker.Summary(id, status), run.tracker.Events()); err != nil {
		p.log.Warn().Err(err).Str("projectId", id).Msg("telemetry write failed")
	}
	metrics.PipelineRunsTotal.WithLabelValues("ready").Inc()
	p.log.Info().Str("projectId", id).Int("warnings", len(run.warnings)).Msg("rough cut plan ready")

	return &Result{ProjectID: id, Status: status, Artifacts: run.artifacts, Warnings: run.warnings}, nil
}

// finishFailed records the terminal failure; the status artifact is written
// even when the store update itself fails, so failures stay observable.
func (p *Pipeline) finishFailed(run *runState, cause error) (*Result, error) {
	id := run.project.ID
	statusFile := project.StatusFile{
		ProjectID: id,
		Status:    project.StatusFailed,
		Error:     cause.Error(),
		StageMs:   run.tracker.Snapshot(),
		Artifacts: run.artifacts,
		Warnings:  run.warnings,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := p.store.WriteArtifact(id, "status.json", statusFile); err != nil {
		p.log.Error().Err(err).Str("projectId", id).Msg("status artifact write failed")
	}
	if err := p.store.SetStatus(id, project.StatusFailed); err != nil {
		p.log.Error().Err(err).Str("projectId", id).Msg("status update failed")
	}
	if err := p.store.WriteTelemetry(id, run.tracker.Summary(id, project.StatusFailed), run.tracker.Events()); err != nil {
		p.log.Warn().Err(err).Str("projectId", id).Msg("telemetry write failed")
	}
	metrics.PipelineRunsTotal.WithLabelValues("failed").Inc()
	return nil, cause
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
