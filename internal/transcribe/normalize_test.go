package transcribe

import (
	"testing"

	"github.com/lapaas/roughcut/internal/transcript"
)

func testSource() transcript.Source {
	return transcript.Source{Path: "/media/talk.mp4", Ref: "talk.mp4", DurationUs: 12_000_000}
}

func TestNormalizeResponse(t *testing.T) {
	resp := &Response{
		Text:     "Hello world. Second part.",
		Language: "en",
		Duration: 12.0,
		Words: []Word{
			{Word: "Hello", Start: 0.0, End: 0.4, Confidence: 0.9},
			{Word: "world.", Start: 0.4, End: 0.4, Confidence: 0.8}, // degenerate span
			{Word: "Second", Start: 3.0, End: 3.5, Confidence: 0.95},
			{Word: "part.", Start: 3.5, End: 4.0, Confidence: 0.9},
		},
		Segments: []Segment{
			{Text: "Hello world.", Start: 0.0, End: 1.0, Confidence: 0.85},
			{Text: "Second part.", Start: 3.0, End: 4.0, Confidence: 0.92},
		},
	}
	desc := Descriptor{Kind: "local", Mode: "hybrid", Runtime: "faster-whisper", Model: "large-v3"}

	tr := Normalize(resp, testSource(), desc, "proj-1", []string{"chunk 3 failed: timeout"})

	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if tr.ProjectID != "proj-1" || tr.Language != "en" {
		t.Errorf("projectId/language = %q/%q", tr.ProjectID, tr.Language)
	}
	// Mode is the run mode; the adapter kind is recorded separately.
	if tr.Mode != "hybrid" || tr.Adapter.Kind != "local" {
		t.Errorf("mode/kind = %q/%q, want hybrid/local", tr.Mode, tr.Adapter.Kind)
	}
	if tr.Adapter.Runtime != "faster-whisper" || tr.Adapter.Synthetic {
		t.Errorf("adapter = %+v", tr.Adapter)
	}
	if len(tr.Adapter.Warnings) != 1 {
		t.Errorf("warnings = %v", tr.Adapter.Warnings)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(tr.Segments))
	}
	if len(tr.Words) != 4 || tr.WordCount != 4 {
		t.Fatalf("expected 4 words, got %d (count %d)", len(tr.Words), tr.WordCount)
	}

	t.Run("identifiers", func(t *testing.T) {
		if tr.Segments[0].ID != "seg-0" || tr.Segments[1].ID != "seg-1" {
			t.Errorf("segment ids: %q %q", tr.Segments[0].ID, tr.Segments[1].ID)
		}
		if tr.Words[0].ID != "word-0-0" || tr.Words[2].ID != "word-1-0" {
			t.Errorf("word ids: %q %q", tr.Words[0].ID, tr.Words[2].ID)
		}
	})

	t.Run("microsecond_conversion", func(t *testing.T) {
		if tr.Segments[1].StartUs != 3_000_000 || tr.Segments[1].EndUs != 4_000_000 {
			t.Errorf("segment 1 = [%d, %d]", tr.Segments[1].StartUs, tr.Segments[1].EndUs)
		}
		if tr.Words[0].StartUs != 0 || tr.Words[0].EndUs != 400_000 {
			t.Errorf("word 0 = [%d, %d]", tr.Words[0].StartUs, tr.Words[0].EndUs)
		}
	})

	t.Run("degenerate_word_span_repaired", func(t *testing.T) {
		w := tr.Words[1]
		if w.EndUs-w.StartUs < transcript.MinWordSpanUs {
			t.Errorf("word span = %d, want >= %d", w.EndUs-w.StartUs, transcript.MinWordSpanUs)
		}
	})

	t.Run("normalized_forms", func(t *testing.T) {
		if tr.Words[1].Normalized != "world" {
			t.Errorf("normalized = %q, want world", tr.Words[1].Normalized)
		}
	})

	t.Run("word_assignment", func(t *testing.T) {
		if got := len(tr.Segments[0].WordIDs); got != 2 {
			t.Errorf("segment 0 owns %d words, want 2", got)
		}
		if got := len(tr.Segments[1].WordIDs); got != 2 {
			t.Errorf("segment 1 owns %d words, want 2", got)
		}
	})
}

func TestNormalizeResponse_SegmentFloor(t *testing.T) {
	resp := &Response{
		Segments: []Segment{{Text: "hi", Start: 2.0, End: 2.1}},
	}
	tr := Normalize(resp, testSource(), Descriptor{Kind: "api"}, "proj-1", nil)
	if len(tr.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(tr.Segments))
	}
	if got := tr.Segments[0].EndUs - tr.Segments[0].StartUs; got != 1_000_000 {
		t.Errorf("segment span = %d, want 1000000", got)
	}
}

func TestNormalizeResponse_WordsWithoutSegments(t *testing.T) {
	// A pause beyond one second splits word-only output into two segments.
	resp := &Response{
		Words: []Word{
			{Word: "one", Start: 0.0, End: 0.3},
			{Word: "two", Start: 0.4, End: 0.7},
			{Word: "three", Start: 2.5, End: 2.9},
		},
	}
	tr := Normalize(resp, testSource(), Descriptor{Kind: "local"}, "proj-1", nil)
	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(tr.Segments))
	}
	if tr.Segments[0].Text != "one two" {
		t.Errorf("segment 0 text = %q, want %q", tr.Segments[0].Text, "one two")
	}
	if tr.Segments[1].Text != "three" {
		t.Errorf("segment 1 text = %q, want %q", tr.Segments[1].Text, "three")
	}
}

func TestNormalizeResponse_SegmentsWithoutWords(t *testing.T) {
	resp := &Response{
		Segments: []Segment{{Text: "spoken line here", Start: 0.0, End: 2.0}},
	}
	tr := Normalize(resp, testSource(), Descriptor{Kind: "api"}, "proj-1", nil)
	if len(tr.Words) != 3 {
		t.Fatalf("expected 3 interpolated words, got %d", len(tr.Words))
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSynthetic(t *testing.T) {
	src := transcript.Source{Path: "/media/a.mp4", Ref: "a.mp4", DurationUs: 12_000_000}
	desc := Descriptor{Kind: "api", Warnings: []string{"no credential"}}

	tr := Synthetic(src, desc, "proj-2", nil)

	if !tr.Adapter.Synthetic {
		t.Error("adapter should be marked synthetic")
	}
	// 12s of source at 5s placeholder segments.
	if len(tr.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(tr.Segments))
	}
	if tr.Segments[0].StartUs != 0 || tr.Segments[0].EndUs != 5_000_000 {
		t.Errorf("segment 0 = [%d, %d]", tr.Segments[0].StartUs, tr.Segments[0].EndUs)
	}
	last := tr.Segments[2]
	if last.StartUs != 10_000_000 || last.EndUs != 12_000_000 {
		t.Errorf("last segment = [%d, %d], want [10000000, 12000000]", last.StartUs, last.EndUs)
	}
	if len(tr.Words) != 0 {
		t.Errorf("synthetic transcript should have no words, got %d", len(tr.Words))
	}
	if len(tr.Adapter.Warnings) != 1 {
		t.Errorf("warnings = %v", tr.Adapter.Warnings)
	}
}

func TestSynthetic_ZeroDuration(t *testing.T) {
	tr := Synthetic(transcript.Source{DurationUs: 0}, Descriptor{}, "proj-3", nil)
	if len(tr.Segments) != 1 {
		t.Fatalf("expected 1 placeholder segment, got %d", len(tr.Segments))
	}
	if tr.Segments[0].EndUs <= tr.Segments[0].StartUs {
		t.Errorf("placeholder segment is degenerate: %+v", tr.Segments[0])
	}
}
