package retention

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lapaas/roughcut/internal/transcript"
)

const (
	maxChunkWords = 40
	maxChunkDurUs = int64(12_000_000)
)

// sentenceTerminators covers Latin, CJK and Indic scripts.
var sentenceTerminators = map[rune]bool{
	'.': true, '?': true, '!': true,
	'。': true, '？': true, '！': true,
	'।': true, '॥': true,
}

// sentence is one terminated fragment with interpolated timing.
type sentence struct {
	Text      string
	StartUs   int64
	EndUs     int64
	WordCount int
}

// Chunk is a short topical span of speech, the annotation unit for the
// high-retention plan.
type Chunk struct {
	ID        string `json:"id"`
	StartUs   int64  `json:"startUs"`
	EndUs     int64  `json:"endUs"`
	Text      string `json:"text"`
	WordCount int    `json:"wordCount"`
}

// BuildChunks splits segments into sentences and regroups them greedily so
// that no chunk exceeds the word or duration budget. A single over-budget
// sentence still becomes its own chunk rather than being split mid-thought.
func BuildChunks(tr *transcript.Transcript) []Chunk {
	var sentences []sentence
	for _, seg := range tr.Segments {
		sentences = append(sentences, splitSentences(seg)...)
	}
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	cur := Chunk{ID: "chunk-0", StartUs: sentences[0].StartUs, EndUs: sentences[0].StartUs}
	var texts []string
	flush := func() {
		if len(texts) == 0 {
			return
		}
		cur.Text = strings.Join(texts, " ")
		chunks = append(chunks, cur)
		texts = texts[:0]
	}
	for _, s := range sentences {
		over := cur.WordCount+s.WordCount > maxChunkWords || s.EndUs-cur.StartUs > maxChunkDurUs
		if over && len(texts) > 0 {
			flush()
			cur = Chunk{ID: "chunk-" + strconv.Itoa(len(chunks)), StartUs: s.StartUs, WordCount: 0}
		}
		texts = append(texts, s.Text)
		cur.WordCount += s.WordCount
		if s.EndUs > cur.EndUs {
			cur.EndUs = s.EndUs
		}
	}
	flush()
	return chunks
}

// splitSentences breaks a segment's text on sentence terminators and
// interpolates fragment timestamps proportionally to character count. The
// approximation skews for scripts with dense glyphs; downstream consumers
// rely on that exact skew, so it stays.
func splitSentences(seg transcript.Segment) []sentence {
	text := strings.TrimSpace(seg.Text)
	if text == "" {
		return nil
	}

	var fragments []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if sentenceTerminators[r] {
			if f := strings.TrimSpace(b.String()); f != "" {
				fragments = append(fragments, f)
			}
			b.Reset()
		}
	}
	if f := strings.TrimSpace(b.String()); f != "" {
		fragments = append(fragments, f)
	}

	total := 0
	for _, f := range fragments {
		total += utf8.RuneCountInString(f)
	}
	if total == 0 {
		return nil
	}

	dur := seg.EndUs - seg.StartUs
	out := make([]sentence, 0, len(fragments))
	consumed := 0
	for _, f := range fragments {
		chars := utf8.RuneCountInString(f)
		start := seg.StartUs + dur*int64(consumed)/int64(total)
		consumed += chars
		end := seg.StartUs + dur*int64(consumed)/int64(total)
		out = append(out, sentence{
			Text:      f,
			StartUs:   start,
			EndUs:     end,
			WordCount: len(strings.Fields(f)),
		})
	}
	return out
}
