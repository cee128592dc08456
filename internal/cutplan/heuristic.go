package cutplan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/media"
	"github.com/lapaas/roughcut/internal/transcript"
)

const (
	// introThresholdUs gates the fixed dead-air candidate at the very
	// start; short clips rarely have a slack opening worth trimming.
	introThresholdUs = int64(30 * time.Second / time.Microsecond)
	introRangeUs     = int64(600 * time.Millisecond / time.Microsecond)

	fillerPadUs = int64(120 * time.Millisecond / time.Microsecond)

	longPauseGapUs   = int64(1200 * time.Millisecond / time.Microsecond)
	longPauseRangeUs = int64(600 * time.Millisecond / time.Microsecond)

	minSilenceUs = int64(800 * time.Millisecond / time.Microsecond)
	silencePadUs = int64(150 * time.Millisecond / time.Microsecond)

	// fingerprintWords is the number of leading normalized words hashed
	// per segment for repetition detection. Tunable; shorter fingerprints
	// over-match on common openings.
	fingerprintWords = 8
)

// fillerTokens are matched against Word.Normalized, so punctuation and case
// never interfere.
var fillerTokens = map[string]bool{
	"um": true, "uh": true, "uhm": true, "er": true,
	"erm": true, "hmm": true, "ah": true, "like": true,
}

// PlannerInfo records which engine produced a plan.
type PlannerInfo struct {
	Model    string `json:"model,omitempty"`
	Strategy string `json:"strategy"`
}

// Analysis summarizes the planner inputs for the plan artifact.
type Analysis struct {
	DurationUs     int64 `json:"durationUs"`
	SegmentCount   int   `json:"segmentCount"`
	WordCount      int   `json:"wordCount"`
	SilenceCount   int   `json:"silenceCount"`
	CandidateCount int   `json:"candidateCount"`
}

// CutPlan is the immutable per-run planning artifact.
type CutPlan struct {
	PlanID         string        `json:"planId"`
	ProjectID      string        `json:"projectId"`
	CreatedAt      time.Time     `json:"createdAt"`
	Mode           string        `json:"mode"`
	FallbackPolicy string        `json:"fallbackPolicy"`
	Planner        PlannerInfo   `json:"planner"`
	Analysis       Analysis      `json:"analysis"`
	RemoveRanges   []RemoveRange `json:"removeRanges"`
	Rationale      []string      `json:"rationale,omitempty"`
}

// Heuristic derives remove-ranges from silence analysis, filler words, long
// inter-segment pauses and repeated spoken content. It needs no model and is
// the fallback for every other planner.
type Heuristic struct {
	log zerolog.Logger
}

func NewHeuristic(log zerolog.Logger) *Heuristic {
	return &Heuristic{log: log.With().Str("component", "heuristic-planner").Logger()}
}

// Plan gathers candidates from every source and clamps them into a plan.
func (h *Heuristic) Plan(tr *transcript.Transcript, silences []media.SilenceRange, mode, fallbackPolicy string) *CutPlan {
	durationUs := tr.Source.DurationUs

	var candidates []RemoveRange
	var rationale []string

	if durationUs > introThresholdUs {
		candidates = append(candidates, RemoveRange{
			StartUs:    0,
			EndUs:      introRangeUs,
			Reason:     "intro",
			Confidence: 0.25,
		})
		rationale = append(rationale, "proposed trimming likely dead air at the start")
	}

	if fillers := h.fillerCandidates(tr); len(fillers) > 0 {
		candidates = append(candidates, fillers...)
		rationale = append(rationale, fmt.Sprintf("flagged %d filler words", len(fillers)))
	}
	if pauses := pauseCandidates(tr); len(pauses) > 0 {
		candidates = append(candidates, pauses...)
		rationale = append(rationale, fmt.Sprintf("flagged %d long pauses between segments", len(pauses)))
	}
	if sil := silenceCandidates(silences); len(sil) > 0 {
		candidates = append(candidates, sil...)
		rationale = append(rationale, fmt.Sprintf("flagged %d silence intervals", len(sil)))
	}
	if reps := repetitionCandidates(tr); len(reps) > 0 {
		candidates = append(candidates, reps...)
		rationale = append(rationale, fmt.Sprintf("flagged %d repeated passages", len(reps)))
	}

	merged := ClampRanges(candidates, durationUs)
	h.log.Info().
		Int("candidates", len(candidates)).
		Int("merged", len(merged)).
		Int64("durationUs", durationUs).
		Msg("heuristic plan built")

	return &CutPlan{
		PlanID:         uuid.NewString(),
		ProjectID:      tr.ProjectID,
		CreatedAt:      time.Now().UTC(),
		Mode:           mode,
		FallbackPolicy: fallbackPolicy,
		Planner:        PlannerInfo{Strategy: "heuristic"},
		Analysis: Analysis{
			DurationUs:     durationUs,
			SegmentCount:   len(tr.Segments),
			WordCount:      len(tr.Words),
			SilenceCount:   len(silences),
			CandidateCount: len(candidates),
		},
		RemoveRanges: merged,
		Rationale:    rationale,
	}
}

func (h *Heuristic) fillerCandidates(tr *transcript.Transcript) []RemoveRange {
	var out []RemoveRange
	for _, w := range tr.Words {
		if !fillerTokens[w.Normalized] {
			continue
		}
		out = append(out, RemoveRange{
			StartUs:    w.StartUs - fillerPadUs,
			EndUs:      w.EndUs + fillerPadUs,
			Reason:     "filler",
			Confidence: 0.6,
		})
	}
	return out
}

// pauseCandidates emits a small range centered on each inter-segment gap
// that exceeds the long-pause threshold.
func pauseCandidates(tr *transcript.Transcript) []RemoveRange {
	var out []RemoveRange
	for i := 1; i < len(tr.Segments); i++ {
		prev, cur := tr.Segments[i-1], tr.Segments[i]
		gap := cur.StartUs - prev.EndUs
		if gap <= longPauseGapUs {
			continue
		}
		mid := prev.EndUs + gap/2
		out = append(out, RemoveRange{
			StartUs:    mid - longPauseRangeUs/2,
			EndUs:      mid + longPauseRangeUs/2,
			Reason:     "long-pause",
			Confidence: 0.5,
		})
	}
	return out
}

// silenceCandidates keeps only silences above the minimum duration and
// shrinks each by a fixed pad so some silence survives at the cut boundary.
func silenceCandidates(silences []media.SilenceRange) []RemoveRange {
	var out []RemoveRange
	for _, s := range silences {
		if s.EndUs-s.StartUs < minSilenceUs {
			continue
		}
		out = append(out, RemoveRange{
			StartUs:    s.StartUs + silencePadUs,
			EndUs:      s.EndUs - silencePadUs,
			Reason:     "silence",
			Confidence: 0.7,
		})
	}
	return out
}

// repetitionCandidates fingerprints each segment by its leading normalized
// words; the first occurrence is kept, later occurrences become removal
// candidates.
func repetitionCandidates(tr *transcript.Transcript) []RemoveRange {
	seen := make(map[string]bool)
	var out []RemoveRange
	for _, seg := range tr.Segments {
		fp := fingerprint(tr, seg)
		if fp == "" {
			continue
		}
		if seen[fp] {
			out = append(out, RemoveRange{
				StartUs:    seg.StartUs,
				EndUs:      seg.EndUs,
				Reason:     "repetition",
				Confidence: 0.8,
			})
			continue
		}
		seen[fp] = true
	}
	return out
}

// fingerprint returns the segment's repetition key, or "" when the segment
// is too short to be meaningful.
func fingerprint(tr *transcript.Transcript, seg transcript.Segment) string {
	words := tr.WordsForSegment(seg)
	var parts []string
	for _, w := range words {
		if w.Normalized == "" {
			continue
		}
		parts = append(parts, w.Normalized)
		if len(parts) == fingerprintWords {
			return strings.Join(parts, " ")
		}
	}
	return ""
}
