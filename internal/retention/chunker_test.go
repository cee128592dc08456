package retention

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lapaas/roughcut/internal/transcript"
)

func segmentOf(startUs, endUs int64, text string) transcript.Segment {
	return transcript.Segment{StartUs: startUs, EndUs: endUs, Text: text}
}

func TestSplitSentences(t *testing.T) {
	t.Run("terminators", func(t *testing.T) {
		seg := segmentOf(0, 3_000_000, "First one. Second one? Third one!")
		got := splitSentences(seg)
		if len(got) != 3 {
			t.Fatalf("expected 3 sentences, got %d: %v", len(got), got)
		}
		if got[0].Text != "First one." || got[1].Text != "Second one?" || got[2].Text != "Third one!" {
			t.Errorf("texts: %q %q %q", got[0].Text, got[1].Text, got[2].Text)
		}
	})

	t.Run("unterminated_tail_kept", func(t *testing.T) {
		seg := segmentOf(0, 1_000_000, "Done. and then")
		got := splitSentences(seg)
		if len(got) != 2 {
			t.Fatalf("expected 2 fragments, got %d", len(got))
		}
		if got[1].Text != "and then" {
			t.Errorf("tail = %q", got[1].Text)
		}
	})

	t.Run("proportional_interpolation", func(t *testing.T) {
		// Two fragments of equal rune count split the span evenly.
		seg := segmentOf(0, 2_000_000, "aaaa. bbbb.")
		got := splitSentences(seg)
		if len(got) != 2 {
			t.Fatalf("expected 2 sentences, got %d", len(got))
		}
		if got[0].StartUs != 0 || got[0].EndUs != 1_000_000 {
			t.Errorf("fragment 0 = [%d, %d], want [0, 1000000]", got[0].StartUs, got[0].EndUs)
		}
		if got[1].StartUs != 1_000_000 || got[1].EndUs != 2_000_000 {
			t.Errorf("fragment 1 = [%d, %d], want [1000000, 2000000]", got[1].StartUs, got[1].EndUs)
		}
	})

	t.Run("interpolation_is_contiguous", func(t *testing.T) {
		seg := segmentOf(500_000, 9_500_000, "Short. A much longer sentence with many more characters in it. End.")
		got := splitSentences(seg)
		if got[0].StartUs != seg.StartUs {
			t.Errorf("first fragment starts at %d, want %d", got[0].StartUs, seg.StartUs)
		}
		if got[len(got)-1].EndUs != seg.EndUs {
			t.Errorf("last fragment ends at %d, want %d", got[len(got)-1].EndUs, seg.EndUs)
		}
		for i := 1; i < len(got); i++ {
			if got[i].StartUs != got[i-1].EndUs {
				t.Errorf("gap between fragments %d and %d", i-1, i)
			}
		}
	})

	t.Run("devanagari_danda", func(t *testing.T) {
		seg := segmentOf(0, 2_000_000, "नमस्ते। कैसे हैं।")
		got := splitSentences(seg)
		if len(got) != 2 {
			t.Fatalf("expected 2 sentences, got %d", len(got))
		}
	})

	t.Run("empty_segment", func(t *testing.T) {
		if got := splitSentences(segmentOf(0, 1_000_000, "   ")); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestBuildChunks(t *testing.T) {
	t.Run("word_budget", func(t *testing.T) {
		// Three 20-word sentences: the third pushes past 40 words and
		// starts a new chunk.
		sent := strings.Repeat("word ", 19) + "end."
		tr := &transcript.Transcript{
			Segments: []transcript.Segment{
				segmentOf(0, 3_000_000, sent+" "+sent+" "+sent),
			},
		}
		chunks := BuildChunks(tr)
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(chunks))
		}
		if chunks[0].WordCount != 40 || chunks[1].WordCount != 20 {
			t.Errorf("word counts = %d, %d, want 40, 20", chunks[0].WordCount, chunks[1].WordCount)
		}
		if chunks[0].ID != "chunk-0" || chunks[1].ID != "chunk-1" {
			t.Errorf("ids = %q, %q", chunks[0].ID, chunks[1].ID)
		}
	})

	t.Run("duration_budget", func(t *testing.T) {
		tr := &transcript.Transcript{
			Segments: []transcript.Segment{
				segmentOf(0, 10_000_000, "First thought here."),
				segmentOf(10_000_000, 20_000_000, "Second thought here."),
			},
		}
		chunks := BuildChunks(tr)
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d (%v)", len(chunks), chunks)
		}
		for i, c := range chunks {
			if c.EndUs-c.StartUs > 12_000_000 {
				t.Errorf("chunk %d spans %dus, over budget", i, c.EndUs-c.StartUs)
			}
		}
	})

	t.Run("single_over_budget_sentence_stays_whole", func(t *testing.T) {
		long := strings.Repeat("word ", 59) + "end."
		tr := &transcript.Transcript{
			Segments: []transcript.Segment{segmentOf(0, 5_000_000, long)},
		}
		chunks := BuildChunks(tr)
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		if chunks[0].WordCount != 60 {
			t.Errorf("wordCount = %d, want 60", chunks[0].WordCount)
		}
	})

	t.Run("no_text_no_chunks", func(t *testing.T) {
		tr := &transcript.Transcript{
			Segments: []transcript.Segment{segmentOf(0, 5_000_000, "")},
		}
		if chunks := BuildChunks(tr); chunks != nil {
			t.Errorf("expected nil, got %v", chunks)
		}
	})

	t.Run("many_segments", func(t *testing.T) {
		tr := &transcript.Transcript{}
		for i := 0; i < 10; i++ {
			start := int64(i) * 4_000_000
			tr.Segments = append(tr.Segments,
				segmentOf(start, start+4_000_000, fmt.Sprintf("Segment number %d speaks briefly.", i)))
		}
		chunks := BuildChunks(tr)
		if len(chunks) == 0 {
			t.Fatal("expected chunks")
		}
		total := 0
		for _, c := range chunks {
			total += c.WordCount
		}
		if total != 50 {
			t.Errorf("total words = %d, want 50", total)
		}
	})
}
