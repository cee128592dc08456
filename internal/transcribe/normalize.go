package transcribe

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lapaas/roughcut/internal/transcript"
)

const (
	// segmentGapSec breaks words into segments where a backend returned
	// word timings but no segmentation of its own.
	segmentGapSec = 1.0

	// minSegmentUs is the floor applied to every canonical segment span.
	minSegmentUs = int64(time.Second / time.Microsecond)

	// syntheticSegmentUs is the placeholder span used when no engine ran
	// and the transcript is synthesized from the source duration alone.
	syntheticSegmentUs = 5 * minSegmentUs
)

// Normalize converts a merged provider response into the canonical
// transcript: microsecond timestamps, repaired word spans, stable
// "seg-N" / "word-N-M" identifiers and normalized word forms.
func Normalize(resp *Response, src transcript.Source, desc Descriptor, projectID string, warnings []string) *transcript.Transcript {
	segs := resp.Segments
	words := resp.Words
	if len(segs) == 0 && len(words) > 0 {
		segs = segmentsFromWords(words)
	}
	if len(words) == 0 && len(segs) > 0 {
		words = wordsFromSegments(segs)
	}

	tr := &transcript.Transcript{
		TranscriptID: uuid.NewString(),
		ProjectID:    projectID,
		CreatedAt:    time.Now().UTC(),
		Mode:         desc.Mode,
		Language:     resp.Language,
		Source:       src,
		Adapter: transcript.Adapter{
			Kind:     desc.Kind,
			Runtime:  desc.Runtime,
			Model:    desc.Model,
			Warnings: append(append([]string(nil), desc.Warnings...), warnings...),
		},
	}

	wi := 0
	for si, seg := range segs {
		startUs := toUs(seg.Start)
		endUs := toUs(seg.End)
		if endUs < startUs+minSegmentUs {
			endUs = startUs + minSegmentUs
		}

		canon := transcript.Segment{
			ID:         "seg-" + strconv.Itoa(si),
			StartUs:    startUs,
			EndUs:      endUs,
			Confidence: seg.Confidence,
		}

		var texts []string
		last := si == len(segs)-1
		for idx := 0; wi < len(words) && (last || words[wi].Start < seg.End); idx++ {
			w := words[wi]
			wi++
			ws, we := transcript.RepairSpan(toUs(w.Start), toUs(w.End))
			cw := transcript.Word{
				ID:         "word-" + strconv.Itoa(si) + "-" + strconv.Itoa(idx),
				Text:       w.Word,
				Normalized: transcript.Normalize(w.Word),
				StartUs:    ws,
				EndUs:      we,
				Confidence: w.Confidence,
			}
			tr.Words = append(tr.Words, cw)
			canon.WordIDs = append(canon.WordIDs, cw.ID)
			texts = append(texts, w.Word)
		}

		canon.Text = strings.TrimSpace(seg.Text)
		if canon.Text == "" {
			canon.Text = strings.Join(texts, " ")
		}
		tr.Segments = append(tr.Segments, canon)
	}

	tr.WordCount = len(tr.Words)
	return tr
}

// Synthetic builds a placeholder transcript from the source duration alone,
// used when no transcription engine is available. Cut planning degrades to
// silence-only heuristics but the pipeline still completes.
func Synthetic(src transcript.Source, desc Descriptor, projectID string, warnings []string) *transcript.Transcript {
	tr := &transcript.Transcript{
		TranscriptID: uuid.NewString(),
		ProjectID:    projectID,
		CreatedAt:    time.Now().UTC(),
		Mode:         desc.Mode,
		Source:       src,
		Adapter: transcript.Adapter{
			Kind:      desc.Kind,
			Runtime:   desc.Runtime,
			Model:     desc.Model,
			Synthetic: true,
			Warnings:  append(append([]string(nil), desc.Warnings...), warnings...),
		},
	}

	n := int(math.Ceil(float64(src.DurationUs) / float64(syntheticSegmentUs)))
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		start := int64(i) * syntheticSegmentUs
		end := start + syntheticSegmentUs
		if end > src.DurationUs {
			end = src.DurationUs
		}
		if end < start+minSegmentUs {
			end = start + minSegmentUs
		}
		tr.Segments = append(tr.Segments, transcript.Segment{
			ID:      "seg-" + strconv.Itoa(i),
			StartUs: start,
			EndUs:   end,
		})
	}
	return tr
}

// segmentsFromWords groups word timings into segments, breaking on pauses
// longer than segmentGapSec.
func segmentsFromWords(words []Word) []Segment {
	var segs []Segment
	cur := Segment{Start: words[0].Start, End: words[0].End}
	var texts []string
	flush := func() {
		cur.Text = strings.Join(texts, " ")
		segs = append(segs, cur)
		texts = texts[:0]
	}
	for i, w := range words {
		if i > 0 && w.Start-cur.End > segmentGapSec {
			flush()
			cur = Segment{Start: w.Start}
		}
		texts = append(texts, w.Word)
		if w.End > cur.End {
			cur.End = w.End
		}
	}
	flush()
	return segs
}

func toUs(sec float64) int64 {
	return int64(math.Round(sec * 1e6))
}
