package cutplan

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/media"
	"github.com/lapaas/roughcut/internal/transcript"
)

// buildTranscript lays out one segment per phrase, words spaced 300ms apart
// with the given gap between segments.
func buildTranscript(durationUs int64, gapUs int64, phrases ...string) *transcript.Transcript {
	tr := &transcript.Transcript{
		ProjectID: "proj-test",
		Source:    transcript.Source{Path: "/tmp/test.mp4", Ref: "test.mp4", DurationUs: durationUs},
	}
	var cursor int64
	for si, phrase := range phrases {
		seg := transcript.Segment{
			ID:      fmt.Sprintf("seg-%d", si),
			StartUs: cursor,
			Text:    phrase,
		}
		for wi, tok := range strings.Fields(phrase) {
			w := transcript.Word{
				ID:         fmt.Sprintf("word-%d-%d", si, wi),
				Text:       tok,
				Normalized: transcript.Normalize(tok),
				StartUs:    cursor,
				EndUs:      cursor + 250_000,
			}
			tr.Words = append(tr.Words, w)
			seg.WordIDs = append(seg.WordIDs, w.ID)
			cursor += 300_000
		}
		seg.EndUs = cursor
		tr.Segments = append(tr.Segments, seg)
		cursor += gapUs
	}
	tr.WordCount = len(tr.Words)
	return tr
}

func findByReason(ranges []RemoveRange, reason string) []RemoveRange {
	var out []RemoveRange
	for _, r := range ranges {
		if strings.Contains(r.Reason, reason) {
			out = append(out, r)
		}
	}
	return out
}

func TestHeuristicPlan_Fillers(t *testing.T) {
	h := NewHeuristic(zerolog.Nop())
	tr := buildTranscript(20_000_000, 0, "so um this is a test")

	plan := h.Plan(tr, nil, "hybrid", "local-first")

	fillers := findByReason(plan.RemoveRanges, "filler")
	if len(fillers) != 1 {
		t.Fatalf("expected 1 filler range, got %d (%v)", len(fillers), plan.RemoveRanges)
	}
	// "um" is the second word: [300000, 550000] padded by 120ms each side.
	if fillers[0].StartUs != 180_000 || fillers[0].EndUs != 670_000 {
		t.Errorf("filler range = [%d, %d], want [180000, 670000]",
			fillers[0].StartUs, fillers[0].EndUs)
	}
	if fillers[0].Confidence != 0.6 {
		t.Errorf("confidence = %f, want 0.6", fillers[0].Confidence)
	}
}

func TestHeuristicPlan_IntroOnlyForLongSources(t *testing.T) {
	h := NewHeuristic(zerolog.Nop())

	short := h.Plan(buildTranscript(20_000_000, 0, "hello world"), nil, "hybrid", "local-first")
	if len(findByReason(short.RemoveRanges, "intro")) != 0 {
		t.Errorf("short source should have no intro range: %v", short.RemoveRanges)
	}

	long := h.Plan(buildTranscript(60_000_000, 0, "hello world"), nil, "hybrid", "local-first")
	intros := findByReason(long.RemoveRanges, "intro")
	if len(intros) != 1 {
		t.Fatalf("expected 1 intro range, got %v", long.RemoveRanges)
	}
	if intros[0].StartUs != 0 || intros[0].EndUs != 600_000 {
		t.Errorf("intro range = [%d, %d], want [0, 600000]", intros[0].StartUs, intros[0].EndUs)
	}
}

func TestHeuristicPlan_LongPause(t *testing.T) {
	h := NewHeuristic(zerolog.Nop())
	tr := buildTranscript(20_000_000, 2_000_000, "first part here", "second part here")

	plan := h.Plan(tr, nil, "hybrid", "local-first")

	pauses := findByReason(plan.RemoveRanges, "long-pause")
	if len(pauses) != 1 {
		t.Fatalf("expected 1 pause range, got %v", plan.RemoveRanges)
	}
	// Gap is [900000, 2900000], midpoint 1900000, 600ms centered on it.
	if pauses[0].StartUs != 1_600_000 || pauses[0].EndUs != 2_200_000 {
		t.Errorf("pause range = [%d, %d], want [1600000, 2200000]",
			pauses[0].StartUs, pauses[0].EndUs)
	}
}

func TestHeuristicPlan_Silence(t *testing.T) {
	h := NewHeuristic(zerolog.Nop())
	tr := buildTranscript(20_000_000, 0, "hello world")
	silences := []media.SilenceRange{
		{StartUs: 1_000_000, EndUs: 2_000_000},
		{StartUs: 5_000_000, EndUs: 5_500_000}, // under the 800ms floor
	}

	plan := h.Plan(tr, silences, "hybrid", "local-first")

	sil := findByReason(plan.RemoveRanges, "silence")
	if len(sil) != 1 {
		t.Fatalf("expected 1 silence range, got %v", plan.RemoveRanges)
	}
	if sil[0].StartUs != 1_150_000 || sil[0].EndUs != 1_850_000 {
		t.Errorf("silence range = [%d, %d], want [1150000, 1850000]",
			sil[0].StartUs, sil[0].EndUs)
	}
	if sil[0].Confidence != 0.7 {
		t.Errorf("confidence = %f, want 0.7", sil[0].Confidence)
	}
	if plan.Analysis.SilenceCount != 2 {
		t.Errorf("analysis silenceCount = %d, want 2", plan.Analysis.SilenceCount)
	}
}

func TestHeuristicPlan_Repetition(t *testing.T) {
	h := NewHeuristic(zerolog.Nop())
	take := "okay welcome back to the channel today we talk about editing"
	tr := buildTranscript(60_000_000, 1_000_000, take, take, "something else entirely now for a change of pace")

	plan := h.Plan(tr, nil, "hybrid", "local-first")

	reps := findByReason(plan.RemoveRanges, "repetition")
	if len(reps) != 1 {
		t.Fatalf("expected 1 repetition range, got %v", plan.RemoveRanges)
	}
	// The later occurrence is the one flagged.
	second := tr.Segments[1]
	if reps[0].StartUs > second.StartUs || reps[0].EndUs < second.EndUs {
		t.Errorf("repetition range [%d, %d] does not cover second take [%d, %d]",
			reps[0].StartUs, reps[0].EndUs, second.StartUs, second.EndUs)
	}
	if reps[0].Confidence < 0.8 {
		t.Errorf("confidence = %f, want >= 0.8", reps[0].Confidence)
	}
}

func TestHeuristicPlan_ShortSegmentsNotFingerprinted(t *testing.T) {
	h := NewHeuristic(zerolog.Nop())
	// Under eight words per segment, so no repetition fingerprint forms.
	tr := buildTranscript(60_000_000, 1_000_000, "hello there friend", "hello there friend")

	plan := h.Plan(tr, nil, "hybrid", "local-first")
	if reps := findByReason(plan.RemoveRanges, "repetition"); len(reps) != 0 {
		t.Errorf("short segments should not match: %v", reps)
	}
}

func TestHeuristicPlan_Metadata(t *testing.T) {
	h := NewHeuristic(zerolog.Nop())
	tr := buildTranscript(20_000_000, 0, "um hello world")

	plan := h.Plan(tr, nil, "api", "api-first")

	if plan.PlanID == "" {
		t.Error("planId is empty")
	}
	if plan.ProjectID != "proj-test" {
		t.Errorf("projectId = %q, want proj-test", plan.ProjectID)
	}
	if plan.Planner.Strategy != "heuristic" {
		t.Errorf("strategy = %q, want heuristic", plan.Planner.Strategy)
	}
	if plan.Mode != "api" || plan.FallbackPolicy != "api-first" {
		t.Errorf("mode/policy = %q/%q", plan.Mode, plan.FallbackPolicy)
	}
	if plan.Analysis.WordCount != 3 || plan.Analysis.SegmentCount != 1 {
		t.Errorf("analysis = %+v", plan.Analysis)
	}
	if len(plan.Rationale) == 0 {
		t.Error("rationale is empty")
	}
}
