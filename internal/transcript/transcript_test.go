package transcript

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello,", "hello"},
		{"  Um...  ", "um"},
		{"don't", "dont"},
		{"123", "123"},
		{"!?.", ""},
		{"", ""},
		{"Café", "café"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRepairSpan(t *testing.T) {
	t.Run("healthy_span_untouched", func(t *testing.T) {
		start, end := RepairSpan(1_000_000, 1_400_000)
		if start != 1_000_000 || end != 1_400_000 {
			t.Errorf("got [%d, %d], want [1000000, 1400000]", start, end)
		}
	})

	t.Run("zero_length_span_floored", func(t *testing.T) {
		start, end := RepairSpan(2_000_000, 2_000_000)
		if start != 2_000_000 {
			t.Errorf("start = %d, want 2000000", start)
		}
		if end != 2_000_000+MinWordSpanUs {
			t.Errorf("end = %d, want %d", end, 2_000_000+MinWordSpanUs)
		}
	})

	t.Run("inverted_span_floored", func(t *testing.T) {
		start, end := RepairSpan(500_000, 400_000)
		if end-start != MinWordSpanUs {
			t.Errorf("span = %d, want %d", end-start, MinWordSpanUs)
		}
	})

	t.Run("negative_start_clamped", func(t *testing.T) {
		start, end := RepairSpan(-10_000, 20_000)
		if start != 0 {
			t.Errorf("start = %d, want 0", start)
		}
		if end != 20_000 {
			t.Errorf("end = %d, want 20000", end)
		}
	})
}

func TestValidate(t *testing.T) {
	good := &Transcript{
		Words: []Word{
			{ID: "word-0-0", StartUs: 0, EndUs: 300_000},
			{ID: "word-0-1", StartUs: 300_000, EndUs: 600_000},
		},
		Segments: []Segment{
			{ID: "seg-0", WordIDs: []string{"word-0-0", "word-0-1"}},
		},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	t.Run("degenerate_word_span", func(t *testing.T) {
		bad := &Transcript{Words: []Word{{ID: "word-0-0", StartUs: 100, EndUs: 100}}}
		if err := bad.Validate(); err == nil {
			t.Error("expected error for zero-length word span")
		}
	})

	t.Run("dangling_word_reference", func(t *testing.T) {
		bad := &Transcript{
			Words:    []Word{{ID: "word-0-0", StartUs: 0, EndUs: 100_000}},
			Segments: []Segment{{ID: "seg-0", WordIDs: []string{"word-9-9"}}},
		}
		if err := bad.Validate(); err == nil {
			t.Error("expected error for dangling word id")
		}
	})
}

func TestWordsForSegment(t *testing.T) {
	tr := &Transcript{
		Words: []Word{
			{ID: "word-0-0", Text: "hello"},
			{ID: "word-0-1", Text: "world"},
		},
		Segments: []Segment{
			{ID: "seg-0", WordIDs: []string{"word-0-0", "missing", "word-0-1"}},
		},
	}
	words := tr.WordsForSegment(tr.Segments[0])
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Text != "hello" || words[1].Text != "world" {
		t.Errorf("got %q %q, want hello world", words[0].Text, words[1].Text)
	}
}

func TestRenderSRT(t *testing.T) {
	tr := &Transcript{
		Segments: []Segment{
			{ID: "seg-0", StartUs: 0, EndUs: 2_500_000, Text: "Hello there."},
			{ID: "seg-1", StartUs: 2_500_000, EndUs: 3_661_042_000, Text: "And goodbye."},
			{ID: "seg-2", StartUs: 4_000_000, EndUs: 5_000_000, Text: "   "},
		},
	}
	got := RenderSRT(tr)
	want := "1\n00:00:00,000 --> 00:00:02,500\nHello there.\n\n" +
		"2\n00:00:02,500 --> 01:01:01,042\nAnd goodbye.\n\n"
	if got != want {
		t.Errorf("RenderSRT:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderVTT(t *testing.T) {
	tr := &Transcript{
		Segments: []Segment{
			{ID: "seg-0", StartUs: 0, EndUs: 1_200_000, Text: "One."},
		},
	}
	got := RenderVTT(tr)
	if !strings.HasPrefix(got, "WEBVTT\n\n") {
		t.Errorf("missing WEBVTT header: %q", got)
	}
	if !strings.Contains(got, "00:00:00.000 --> 00:00:01.200\nOne.\n") {
		t.Errorf("missing cue: %q", got)
	}
}
