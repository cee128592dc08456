package transcript

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// MinWordSpanUs is the floor applied to degenerate word spans. Providers
// occasionally emit zero-length or inverted timestamps; every Word in a
// canonical transcript satisfies EndUs-StartUs >= MinWordSpanUs.
const MinWordSpanUs = 50_000 // 50ms

// Word is a single timestamped token owned by its parent Transcript.
type Word struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Normalized string  `json:"normalized"`
	StartUs    int64   `json:"startUs"`
	EndUs      int64   `json:"endUs"`
	Confidence float64 `json:"confidence"`
}

// Segment is a contiguous span of words. WordIDs reference Words owned by
// the parent Transcript; a Segment never owns Words independently.
type Segment struct {
	ID         string   `json:"id"`
	StartUs    int64    `json:"startUs"`
	EndUs      int64    `json:"endUs"`
	Text       string   `json:"text"`
	WordIDs    []string `json:"wordIds"`
	Confidence float64  `json:"confidence"`
}

// Source describes the media file a transcript was produced from.
type Source struct {
	Path       string `json:"path"`
	Ref        string `json:"ref"`
	DurationUs int64  `json:"durationUs"`
}

// Adapter records which transcription backend produced a transcript.
// Synthetic marks transcripts generated from duration alone, with no ASR
// engine involved; telemetry and UI use it to distinguish placeholders.
type Adapter struct {
	Kind      string   `json:"kind"` // "local", "api" or "synthetic"
	Runtime   string   `json:"runtime,omitempty"`
	Model     string   `json:"model,omitempty"`
	Synthetic bool     `json:"synthetic,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Transcript is the canonical, provider-agnostic transcript representation
// consumed by every downstream stage.
type Transcript struct {
	TranscriptID string    `json:"transcriptId"`
	ProjectID    string    `json:"projectId"`
	CreatedAt    time.Time `json:"createdAt"`
	Mode         string    `json:"mode"`
	Language     string    `json:"language"`
	Source       Source    `json:"source"`
	Adapter      Adapter   `json:"adapter"`
	Words        []Word    `json:"words"`
	Segments     []Segment `json:"segments"`
	WordCount    int       `json:"wordCount"`
}

// Normalize lower-cases a token and strips punctuation, producing the key
// used for filler-word and repetition matching.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RepairSpan enforces the minimum word span. The start is kept and the end
// pushed out, so repaired words stay ordered relative to their neighbors.
func RepairSpan(startUs, endUs int64) (int64, int64) {
	if startUs < 0 {
		startUs = 0
	}
	if endUs < startUs+MinWordSpanUs {
		endUs = startUs + MinWordSpanUs
	}
	return startUs, endUs
}

// Validate checks the transcript's structural invariants: every word span is
// positive and every word id referenced by a segment exists.
func (t *Transcript) Validate() error {
	ids := make(map[string]struct{}, len(t.Words))
	for _, w := range t.Words {
		if w.EndUs <= w.StartUs {
			return fmt.Errorf("word %s: degenerate span [%d, %d]", w.ID, w.StartUs, w.EndUs)
		}
		ids[w.ID] = struct{}{}
	}
	for _, s := range t.Segments {
		for _, id := range s.WordIDs {
			if _, ok := ids[id]; !ok {
				return fmt.Errorf("segment %s references unknown word %s", s.ID, id)
			}
		}
	}
	return nil
}

// WordsForSegment resolves a segment's word references against the
// transcript's word table, skipping any dangling ids.
func (t *Transcript) WordsForSegment(seg Segment) []Word {
	byID := make(map[string]Word, len(t.Words))
	for _, w := range t.Words {
		byID[w.ID] = w
	}
	out := make([]Word, 0, len(seg.WordIDs))
	for _, id := range seg.WordIDs {
		if w, ok := byID[id]; ok {
			out = append(out, w)
		}
	}
	return out
}
