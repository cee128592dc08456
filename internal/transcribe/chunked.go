package transcribe

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lapaas/roughcut/internal/media"
)

const (
	// windowSeconds is the chunk length used for parallel transcription.
	windowSeconds = 25.0

	extractWorkers  = 6
	providerWorkers = 4
	chunkAttempts   = 2

	transcriptionTimeout = 15 * time.Minute
)

// ChunkedEngine splits a source into fixed windows, extracts each window as
// mono 16 kHz WAV, transcribes the windows in parallel and merges the
// partial results back into a single offset-corrected Response.
type ChunkedEngine struct {
	runner   *media.Runner
	provider Provider
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func NewChunkedEngine(runner *media.Runner, provider Provider, log zerolog.Logger) *ChunkedEngine {
	return &ChunkedEngine{
		runner:   runner,
		provider: provider,
		// Rough per-provider politeness cap; well below any documented
		// quota but enough to avoid burst rejections on long sources.
		limiter: rate.NewLimiter(rate.Limit(providerWorkers), providerWorkers),
		log:     log.With().Str("component", "chunked").Logger(),
	}
}

type chunkResult struct {
	resp *Response
	err  error
}

// Transcribe runs the full chunked pass. A failed chunk is isolated: its
// window is simply absent from the merged output and reported as a warning.
// Only the degenerate case where every chunk fails is an error.
func (e *ChunkedEngine) Transcribe(ctx context.Context, sourcePath string, durationUs int64, opts Opts) (*Response, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, transcriptionTimeout)
	defer cancel()

	durationSec := float64(durationUs) / 1e6
	n := int(math.Ceil(durationSec / windowSeconds))
	if n < 1 {
		n = 1
	}

	tmpDir, err := os.MkdirTemp("", "roughcut-chunks-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create chunk dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// Each goroutine writes only its own slot. An extraction failure lands
	// in that slot and never cancels the sibling windows.
	results := make([]chunkResult, n)
	paths := make([]string, n)

	var eg errgroup.Group
	eg.SetLimit(extractWorkers)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			start := float64(i) * windowSeconds
			dur := math.Min(windowSeconds, durationSec-start)
			out := filepath.Join(tmpDir, fmt.Sprintf("chunk-%04d.wav", i))
			if err := e.runner.ExtractWindow(ctx, sourcePath, out, int64(start*1e6), int64(dur*1e6)); err != nil {
				results[i] = chunkResult{err: fmt.Errorf("extract: %w", err)}
				return nil
			}
			paths[i] = out
			return nil
		})
	}
	_ = eg.Wait()

	var tg errgroup.Group
	tg.SetLimit(providerWorkers)
	for i := 0; i < n; i++ {
		if results[i].err != nil {
			continue
		}
		i := i
		tg.Go(func() error {
			results[i] = e.transcribeChunk(ctx, paths[i], i, opts)
			return nil
		})
	}
	_ = tg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	return e.merge(results, durationSec)
}

func (e *ChunkedEngine) transcribeChunk(ctx context.Context, path string, index int, opts Opts) chunkResult {
	var lastErr error
	for attempt := 1; attempt <= chunkAttempts; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return chunkResult{err: err}
		}
		resp, err := e.provider.Transcribe(ctx, path, opts)
		if err == nil {
			return chunkResult{resp: resp}
		}
		lastErr = err
		e.log.Warn().Err(err).Int("chunk", index).Int("attempt", attempt).
			Str("provider", e.provider.Name()).Msg("chunk transcription failed")
		if ctx.Err() != nil {
			break
		}
	}
	return chunkResult{err: lastErr}
}

func (e *ChunkedEngine) merge(results []chunkResult, durationSec float64) (*Response, []string, error) {
	merged := &Response{Duration: durationSec}
	var warnings []string
	failed := 0

	var texts []string
	for i, r := range results {
		if r.err != nil {
			failed++
			warnings = append(warnings, fmt.Sprintf("chunk %d failed: %v", i, r.err))
			continue
		}
		offset := float64(i) * windowSeconds
		chunkDur := math.Min(windowSeconds, durationSec-offset)

		words := r.resp.Words
		if degenerateTimings(words) {
			// Some backends return chunk-relative zeros for every word;
			// spread them evenly across the window instead.
			words = spreadWords(words, chunkDur)
		}
		for _, w := range words {
			w.Start += offset
			w.End += offset
			merged.Words = append(merged.Words, w)
		}
		for _, s := range r.resp.Segments {
			s.Start += offset
			s.End += offset
			merged.Segments = append(merged.Segments, s)
		}
		if merged.Language == "" {
			merged.Language = r.resp.Language
		}
		if t := strings.TrimSpace(r.resp.Text); t != "" {
			texts = append(texts, t)
		}
	}

	if failed == len(results) {
		return nil, warnings, fmt.Errorf("all %d transcription chunks failed", len(results))
	}

	sort.SliceStable(merged.Words, func(a, b int) bool { return merged.Words[a].Start < merged.Words[b].Start })
	sort.SliceStable(merged.Segments, func(a, b int) bool { return merged.Segments[a].Start < merged.Segments[b].Start })
	merged.Text = strings.Join(texts, " ")
	return merged, warnings, nil
}

// degenerateTimings reports whether every word carries the same start time,
// which means the backend produced no usable per-word alignment.
func degenerateTimings(words []Word) bool {
	if len(words) < 2 {
		return false
	}
	first := words[0].Start
	for _, w := range words[1:] {
		if w.Start != first {
			return false
		}
	}
	return true
}

func spreadWords(words []Word, dur float64) []Word {
	out := make([]Word, len(words))
	step := dur / float64(len(words))
	for i, w := range words {
		w.Start = float64(i) * step
		w.End = float64(i+1) * step
		out[i] = w
	}
	return out
}
