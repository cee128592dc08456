package cutplan

import (
	"sort"
	"strings"
)

// RemoveRange is one interval a planner wants cut from the source.
type RemoveRange struct {
	StartUs    int64   `json:"startUs"`
	EndUs      int64   `json:"endUs"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// TimeRange is a bare interval, used for keep ranges and timeline clips.
type TimeRange struct {
	StartUs int64 `json:"startUs"`
	EndUs   int64 `json:"endUs"`
}

// ClampRanges normalizes planner candidates: every range is clamped into
// [0, durationUs], empty or inverted ranges are dropped, the rest are sorted
// by start and merged left to right. Overlapping or touching ranges coalesce
// into the union extent with their reasons joined and the maximum confidence
// kept. Applying ClampRanges to its own output is a no-op.
func ClampRanges(ranges []RemoveRange, durationUs int64) []RemoveRange {
	clamped := make([]RemoveRange, 0, len(ranges))
	for _, r := range ranges {
		if r.StartUs < 0 {
			r.StartUs = 0
		}
		if r.EndUs > durationUs {
			r.EndUs = durationUs
		}
		if r.EndUs <= r.StartUs {
			continue
		}
		clamped = append(clamped, r)
	}

	sort.SliceStable(clamped, func(i, j int) bool { return clamped[i].StartUs < clamped[j].StartUs })

	var merged []RemoveRange
	for _, r := range clamped {
		if n := len(merged); n > 0 && r.StartUs <= merged[n-1].EndUs {
			last := &merged[n-1]
			if r.EndUs > last.EndUs {
				last.EndUs = r.EndUs
			}
			last.Reason = joinReasons(last.Reason, r.Reason)
			if r.Confidence > last.Confidence {
				last.Confidence = r.Confidence
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// InvertRanges returns the keep intervals complementing a clamped remove
// list over [0, durationUs].
func InvertRanges(removes []RemoveRange, durationUs int64) []TimeRange {
	if durationUs <= 0 {
		return nil
	}
	var keeps []TimeRange
	var cursor int64
	for _, r := range removes {
		if r.StartUs > cursor {
			keeps = append(keeps, TimeRange{StartUs: cursor, EndUs: r.StartUs})
		}
		if r.EndUs > cursor {
			cursor = r.EndUs
		}
	}
	if cursor < durationUs {
		keeps = append(keeps, TimeRange{StartUs: cursor, EndUs: durationUs})
	}
	return keeps
}

// joinReasons concatenates two reason strings without duplicating parts
// already present, keeping merged output stable under re-merging.
func joinReasons(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}
	for _, part := range strings.Split(a, "+") {
		if part == b {
			return a
		}
	}
	return a + "+" + b
}
