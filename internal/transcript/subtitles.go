package transcript

import (
	"fmt"
	"strings"
)

// RenderSRT renders the transcript's segments as an SRT document, one cue
// per segment.
func RenderSRT(t *Transcript) string {
	var b strings.Builder
	n := 0
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			n, srtTimestamp(seg.StartUs), srtTimestamp(seg.EndUs), text)
	}
	return b.String()
}

// RenderVTT renders the transcript's segments as a WebVTT document.
func RenderVTT(t *Transcript) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			vttTimestamp(seg.StartUs), vttTimestamp(seg.EndUs), text)
	}
	return b.String()
}

// srtTimestamp formats microseconds as HH:MM:SS,mmm.
func srtTimestamp(us int64) string {
	h, m, s, ms := splitUs(us)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// vttTimestamp formats microseconds as HH:MM:SS.mmm.
func vttTimestamp(us int64) string {
	h, m, s, ms := splitUs(us)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitUs(us int64) (h, m, s, ms int64) {
	if us < 0 {
		us = 0
	}
	ms = us / 1000
	s = ms / 1000
	ms %= 1000
	m = s / 60
	s %= 60
	h = m / 60
	m %= 60
	return
}
