package llmplan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lapaas/roughcut/internal/cutplan"
)

// parseResult extracts the structured plan from raw model output. gjson
// tolerates the usual model quirks (fenced code blocks, leading prose) as
// long as one JSON object with the expected keys is present.
func parseResult(raw string) (*Result, error) {
	doc := firstJSONObject(raw)
	if doc == "" {
		return nil, errors.New("no JSON object in model output")
	}
	if !gjson.Valid(doc) {
		return nil, errors.New("model output is not valid JSON")
	}

	root := gjson.Parse(doc)
	removes := root.Get("removeRanges")
	if !removes.Exists() {
		return nil, errors.New("model output missing removeRanges")
	}

	result := &Result{Raw: raw}
	removes.ForEach(func(_, v gjson.Result) bool {
		r := cutplan.RemoveRange{
			StartUs:    v.Get("startUs").Int(),
			EndUs:      v.Get("endUs").Int(),
			Reason:     strings.TrimSpace(v.Get("reason").String()),
			Confidence: v.Get("confidence").Float(),
		}
		if r.Reason == "" {
			r.Reason = "llm"
		}
		result.RemoveRanges = append(result.RemoveRanges, r)
		return true
	})
	root.Get("sections").ForEach(func(_, v gjson.Result) bool {
		s := Section{
			StartUs: v.Get("startUs").Int(),
			EndUs:   v.Get("endUs").Int(),
			Label:   strings.TrimSpace(v.Get("label").String()),
		}
		if s.Label != "" {
			result.Sections = append(result.Sections, s)
		}
		return true
	})
	root.Get("overlays").ForEach(func(_, v gjson.Result) bool {
		o := Overlay{
			StartUs: v.Get("startUs").Int(),
			EndUs:   v.Get("endUs").Int(),
			Text:    strings.TrimSpace(v.Get("text").String()),
		}
		if o.Text != "" {
			result.Overlays = append(result.Overlays, o)
		}
		return true
	})

	for _, s := range result.Sections {
		result.Rationale = append(result.Rationale,
			fmt.Sprintf("section %q [%d, %d]", s.Label, s.StartUs, s.EndUs))
	}
	return result, nil
}

// applyGuard drops every suggested interval falling outside the analyzed
// window (plus tolerance): the model never saw that part of the source, so
// anything pointing there is a hallucination.
func applyGuard(r *Result, rangeStart, rangeEnd int64) {
	limit := rangeEnd + toleranceUs

	inRange := func(start, end int64) bool {
		return start >= rangeStart && end <= limit && end > start
	}

	kept := r.RemoveRanges[:0]
	for _, rr := range r.RemoveRanges {
		if inRange(rr.StartUs, rr.EndUs) {
			kept = append(kept, rr)
		} else {
			r.Discarded++
		}
	}
	r.RemoveRanges = kept

	keptSections := r.Sections[:0]
	for _, s := range r.Sections {
		if inRange(s.StartUs, s.EndUs) {
			keptSections = append(keptSections, s)
		} else {
			r.Discarded++
		}
	}
	r.Sections = keptSections

	keptOverlays := r.Overlays[:0]
	for _, o := range r.Overlays {
		if inRange(o.StartUs, o.EndUs) {
			keptOverlays = append(keptOverlays, o)
		} else {
			r.Discarded++
		}
	}
	r.Overlays = keptOverlays
}

// firstJSONObject returns the first balanced top-level JSON object in s,
// skipping braces inside string literals.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
