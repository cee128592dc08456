package llmplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/cutplan"
	"github.com/lapaas/roughcut/internal/transcript"
)

const (
	// maxSegments caps how much transcript the model sees. The analyzed
	// range is computed from the capped list and passed explicitly, so
	// truncation never shifts the meaning of returned timestamps.
	maxSegments = 200

	// toleranceUs extends the accepted range slightly past the analyzed
	// window; model endpoints often land a frame or two beyond the last
	// segment.
	toleranceUs = int64(250 * time.Millisecond / time.Microsecond)

	maxAttempts    = 3
	requestTimeout = 90 * time.Second
)

// Section is a model-suggested chapter label.
type Section struct {
	StartUs int64  `json:"startUs"`
	EndUs   int64  `json:"endUs"`
	Label   string `json:"label"`
}

// Overlay is a model-suggested on-screen text placement.
type Overlay struct {
	StartUs int64  `json:"startUs"`
	EndUs   int64  `json:"endUs"`
	Text    string `json:"text"`
}

// Result is the validated output of one planning call.
type Result struct {
	RemoveRanges []cutplan.RemoveRange
	Sections     []Section
	Overlays     []Overlay
	Rationale    []string
	Discarded    int
	Raw          string
}

// Planner asks a chat model for structured cut suggestions over a bounded
// transcript window. Callers fall back to the heuristic planner when Plan
// returns an error; the pipeline never fails on this path alone.
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
		log:     log.With().Str("component", "llm-planner").Logger(),
	}
}

func (p *Planner) Model() string { return p.model }

// Plan runs the full request/validate cycle, retrying on parse failures.
func (p *Planner) Plan(ctx context.Context, tr *transcript.Transcript) (*Result, error) {
	if p.apiKey == "" {
		return nil, errors.New("no planner API key configured")
	}

	segs := tr.Segments
	if len(segs) > maxSegments {
		p.log.Warn().Int("segments", len(segs)).Int("cap", maxSegments).
			Msg("transcript capped for planning prompt")
		segs = segs[:maxSegments]
	}
	if len(segs) == 0 {
		return nil, errors.New("transcript has no segments to plan over")
	}
	rangeStart := segs[0].StartUs
	rangeEnd := segs[len(segs)-1].EndUs

	prompt, err := buildPrompt(segs, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := p.complete(ctx, prompt)
		if err != nil {
			return nil, err
		}
		result, err := parseResult(raw)
		if err != nil {
			lastErr = err
			p.log.Warn().Err(err).Int("attempt", attempt).Msg("planner response unparseable")
			continue
		}
		applyGuard(result, rangeStart, rangeEnd)
		if result.Discarded > 0 {
			p.log.Warn().Int("discarded", result.Discarded).
				Int64("rangeStartUs", rangeStart).Int64("rangeEndUs", rangeEnd).
				Msg("discarded out-of-range planner suggestions")
		}
		return result, nil
	}
	return nil, fmt.Errorf("planner output unparseable after %d attempts: %w", maxAttempts, lastErr)
}

func (p *Planner) complete(ctx context.Context, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	opts := []option.RequestOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	client := openai.NewClient(opts...)

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       p.model,
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "cut_plan_result",
					Strict: openai.Bool(true),
					Schema: resultSchema(),
				},
			},
		},
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil && shouldFallbackJSONMode(err) {
		// Some gateways reject json_schema; json_object plus strict
		// parsing covers them.
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
		resp, err = client.Chat.Completions.New(ctx, params)
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if raw == "" {
		return "", errors.New("model returned empty content")
	}
	return raw, nil
}

func shouldFallbackJSONMode(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "json_schema") ||
		strings.Contains(msg, "response_format") ||
		(strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema"))
}

const systemPrompt = "You are a video editor planning a rough cut. " +
	"Given transcript segments with microsecond timestamps, suggest intervals to remove " +
	"(dead air, filler, tangents, repeated takes), section labels, and short overlay texts. " +
	"Output JSON only. Never suggest timestamps outside the analyzed range."

func buildPrompt(segs []transcript.Segment, rangeStart, rangeEnd int64) (string, error) {
	type promptSegment struct {
		ID      string `json:"id"`
		StartUs int64  `json:"startUs"`
		EndUs   int64  `json:"endUs"`
		Text    string `json:"text"`
	}
	items := make([]promptSegment, len(segs))
	for i, s := range segs {
		items[i] = promptSegment{ID: s.ID, StartUs: s.StartUs, EndUs: s.EndUs, Text: s.Text}
	}
	payload, err := json.Marshal(map[string]any{
		"rangeStartUs": rangeStart,
		"rangeEndUs":   rangeEnd,
		"segments":     items,
	})
	if err != nil {
		return "", err
	}
	return "Analyzed range: [" + fmt.Sprint(rangeStart) + ", " + fmt.Sprint(rangeEnd) + "] microseconds.\n" +
		"All returned intervals must lie inside this range.\n\n" +
		"Transcript:\n" + string(payload), nil
}

func resultSchema() map[string]any {
	interval := func(extra map[string]any) map[string]any {
		props := map[string]any{
			"startUs": map[string]any{"type": "integer"},
			"endUs":   map[string]any{"type": "integer"},
		}
		required := []string{"startUs", "endUs"}
		for k, v := range extra {
			props[k] = v
			required = append(required, k)
		}
		return map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             required,
			"properties":           props,
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"removeRanges", "sections", "overlays"},
		"properties": map[string]any{
			"removeRanges": map[string]any{
				"type": "array",
				"items": interval(map[string]any{
					"reason":     map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				}),
			},
			"sections": map[string]any{
				"type":  "array",
				"items": interval(map[string]any{"label": map[string]any{"type": "string"}}),
			},
			"overlays": map[string]any{
				"type":  "array",
				"items": interval(map[string]any{"text": map[string]any{"type": "string"}}),
			},
		},
	}
}
