package retention

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/lapaas/roughcut/internal/cutplan"
	"github.com/lapaas/roughcut/internal/transcript"
)

const (
	// contextWindowUs is how much neighboring speech each annotation
	// prompt carries on either side of its chunk.
	contextWindowUs = int64(20_000_000)

	// maxVisualGapUs is the longest stretch a viewer goes without an
	// on-screen event before the density pass forces one.
	maxVisualGapUs = int64(7_000_000)

	annotateWorkers = 2
	annotateTimeout = 60 * time.Second

	headlineMaxRunes = 48
)

// templates cycled by the heuristic fallback and the density pass.
var templates = []string{"lower-third", "headline-card", "keyword-pop", "b-roll"}

// Decision is the annotation for one chunk.
type Decision struct {
	ChunkID       string `json:"chunkId"`
	Keep          bool   `json:"keep"`
	CutReason     string `json:"cutReason,omitempty"`
	Template      string `json:"template,omitempty"`
	Headline      string `json:"headline,omitempty"`
	ImageQuery    string `json:"imageQuery,omitempty"`
	VideoQuery    string `json:"videoQuery,omitempty"`
	DensityForced bool   `json:"densityForced,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
}

// Plan is the high-retention planning artifact.
type Plan struct {
	PlanID       string                `json:"planId"`
	ProjectID    string                `json:"projectId"`
	CreatedAt    time.Time             `json:"createdAt"`
	Model        string                `json:"model,omitempty"`
	Chunks       []Chunk               `json:"chunks"`
	Decisions    []Decision            `json:"decisions"`
	RemoveRanges []cutplan.RemoveRange `json:"removeRanges"`
	Warnings     []string              `json:"warnings,omitempty"`
}

// Planner annotates topic chunks with keep/cut, template and asset-search
// suggestions, then enforces the visual-density floor.
type Planner struct {
	apiKey  string
	baseURL string
	model   string
	log     zerolog.Logger
}

func NewPlanner(apiKey, baseURL, model string, log zerolog.Logger) *Planner {
	return &Planner{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		log:     log.With().Str("component", "retention-planner").Logger(),
	}
}

// Plan chunks the transcript and annotates every chunk. Annotation failures
// degrade to the heuristic fallback per chunk; Plan itself only fails when
// there is nothing to chunk.
func (p *Planner) Plan(ctx context.Context, tr *transcript.Transcript) (*Plan, error) {
	chunks := BuildChunks(tr)
	if len(chunks) == 0 {
		return nil, errors.New("transcript produced no chunks")
	}

	plan := &Plan{
		PlanID:    uuid.NewString(),
		ProjectID: tr.ProjectID,
		CreatedAt: time.Now().UTC(),
		Model:     p.model,
		Chunks:    chunks,
		Decisions: make([]Decision, len(chunks)),
	}

	if p.apiKey == "" {
		plan.Warnings = append(plan.Warnings, "no planner API key; using heuristic chunk annotations")
		for i, c := range chunks {
			plan.Decisions[i] = fallbackDecision(c, i)
		}
	} else {
		eg, ectx := errgroup.WithContext(ctx)
		eg.SetLimit(annotateWorkers)
		for i, c := range chunks {
			i, c := i, c
			eg.Go(func() error {
				d, err := p.annotate(ectx, chunks, i)
				if err != nil {
					p.log.Warn().Err(err).Str("chunk", c.ID).Msg("chunk annotation failed, using fallback")
					d = fallbackDecision(c, i)
				}
				plan.Decisions[i] = d
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	enforceDensity(plan)

	for i, d := range plan.Decisions {
		if !d.Keep {
			reason := d.CutReason
			if reason == "" {
				reason = "low-retention"
			}
			plan.RemoveRanges = append(plan.RemoveRanges, cutplan.RemoveRange{
				StartUs:    chunks[i].StartUs,
				EndUs:      chunks[i].EndUs,
				Reason:     reason,
				Confidence: 0.5,
			})
		}
	}
	plan.RemoveRanges = cutplan.ClampRanges(plan.RemoveRanges, tr.Source.DurationUs)
	return plan, nil
}

func (p *Planner) annotate(ctx context.Context, chunks []Chunk, index int) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, annotateTimeout)
	defer cancel()

	c := chunks[index]
	opts := []option.RequestOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	client := openai.NewClient(opts...)

	prompt := fmt.Sprintf(
		"Context before: %s\n\nChunk: %s\n\nContext after: %s\n\n"+
			"Decide whether this chunk keeps a viewer watching. Return JSON only: "+
			`{"keep":bool,"cutReason":"why it should be cut, empty when kept",`+
			`"template":"one of %s","headline":"short on-screen text",`+
			`"imageQuery":"stock image search","videoQuery":"stock footage search"}`,
		contextText(chunks, index, -1), c.Text, contextText(chunks, index, +1),
		strings.Join(templates, "|"))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You plan retention edits for talking-head video. Output JSON only."),
			openai.UserMessage(prompt),
		},
		Model:       p.model,
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return Decision{}, err
	}
	if len(resp.Choices) == 0 {
		return Decision{}, errors.New("model returned no choices")
	}
	return parseDecision(resp.Choices[0].Message.Content, c)
}

// parseDecision maps a model annotation onto a Decision. A cut without a
// stated reason gets the generic one, so remove ranges always carry a label.
func parseDecision(raw string, c Chunk) (Decision, error) {
	doc := gjson.Parse(raw)
	if !doc.Get("keep").Exists() {
		return Decision{}, fmt.Errorf("annotation missing keep field: %s", truncate(raw, 120))
	}
	d := Decision{
		ChunkID:    c.ID,
		Keep:       doc.Get("keep").Bool(),
		Template:   normalizeTemplate(doc.Get("template").String()),
		Headline:   truncate(strings.TrimSpace(doc.Get("headline").String()), headlineMaxRunes),
		ImageQuery: strings.TrimSpace(doc.Get("imageQuery").String()),
		VideoQuery: strings.TrimSpace(doc.Get("videoQuery").String()),
	}
	if !d.Keep {
		d.CutReason = strings.TrimSpace(doc.Get("cutReason").String())
		if d.CutReason == "" {
			d.CutReason = "low-retention"
		}
	}
	return d, nil
}

// contextText gathers neighboring chunk text within the context window in
// the given direction.
func contextText(chunks []Chunk, index, dir int) string {
	c := chunks[index]
	var parts []string
	for i := index + dir; i >= 0 && i < len(chunks); i += dir {
		n := chunks[i]
		if dir < 0 && c.StartUs-n.EndUs > contextWindowUs {
			break
		}
		if dir > 0 && n.StartUs-c.EndUs > contextWindowUs {
			break
		}
		if dir < 0 {
			parts = append([]string{n.Text}, parts...)
		} else {
			parts = append(parts, n.Text)
		}
	}
	return strings.Join(parts, " ")
}

// fallbackDecision keeps the chunk with a round-robin template and a
// truncated headline, so a plan always exists even with no model.
func fallbackDecision(c Chunk, index int) Decision {
	return Decision{
		ChunkID:  c.ID,
		Keep:     true,
		Template: templates[index%len(templates)],
		Headline: truncate(c.Text, headlineMaxRunes),
		Fallback: true,
	}
}

// enforceDensity guarantees a minimal on-screen event cadence. The gap is
// measured from the end of the last chunk carrying a visual; a kept chunk
// starting more than maxVisualGapUs past that gets a forced overlay.
func enforceDensity(plan *Plan) {
	var lastVisualUs int64
	for i, d := range plan.Decisions {
		if !d.Keep {
			continue
		}
		c := plan.Chunks[i]
		if d.Template != "" {
			lastVisualUs = c.EndUs
			continue
		}
		if c.StartUs-lastVisualUs > maxVisualGapUs {
			plan.Decisions[i].Template = templates[i%len(templates)]
			plan.Decisions[i].DensityForced = true
			if plan.Decisions[i].Headline == "" {
				plan.Decisions[i].Headline = truncate(c.Text, headlineMaxRunes)
			}
			lastVisualUs = c.EndUs
		}
	}
}

func normalizeTemplate(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range templates {
		if s == t {
			return t
		}
	}
	return ""
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes-1]) + "…"
}
