package cutplan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Track is one lane of the rough-cut timeline.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Order  int    `json:"order"`
	Locked bool   `json:"locked"`
}

// Clip maps a kept source interval onto the timeline.
type Clip struct {
	ClipID        string         `json:"clipId"`
	TrackID       string         `json:"trackId"`
	ClipType      string         `json:"clipType"`
	StartUs       int64          `json:"startUs"`
	EndUs         int64          `json:"endUs"`
	SourceStartUs int64          `json:"sourceStartUs"`
	SourceEndUs   int64          `json:"sourceEndUs"`
	SourceRef     string         `json:"sourceRef"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// Timeline is the editable rough-cut artifact consumed by the rendering
// frontend. Version starts at 1; later manual edits bump it.
type Timeline struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Version    int       `json:"version"`
	Status     string    `json:"status"`
	FPS        int       `json:"fps"`
	DurationUs int64     `json:"durationUs"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Tracks     []Track   `json:"tracks"`
	Clips      []Clip    `json:"clips"`
}

// BuildTimeline converts a clamped remove list into a contiguous timeline:
// the keep intervals become back-to-back clips on the main video track, each
// remembering the source interval it came from.
func BuildTimeline(projectID string, durationUs int64, fps int, sourceRef string, removes []RemoveRange) *Timeline {
	removes = ClampRanges(removes, durationUs)
	keeps := InvertRanges(removes, durationUs)

	videoTrack := Track{ID: "track-video-main", Name: "Main Video", Kind: "video", Order: 0}
	captionsTrack := Track{ID: "track-captions", Name: "Captions", Kind: "caption", Order: 1}

	applied := make([]TimeRange, len(removes))
	for i, r := range removes {
		applied[i] = TimeRange{StartUs: r.StartUs, EndUs: r.EndUs}
	}

	var clips []Clip
	var cursor int64
	for i, keep := range keeps {
		dur := keep.EndUs - keep.StartUs
		clips = append(clips, Clip{
			ClipID:        fmt.Sprintf("clip-%d", i+1),
			TrackID:       videoTrack.ID,
			ClipType:      "source_clip",
			StartUs:       cursor,
			EndUs:         cursor + dur,
			SourceStartUs: keep.StartUs,
			SourceEndUs:   keep.EndUs,
			SourceRef:     sourceRef,
			Meta: map[string]any{
				"generatedBy":         "rough-cut",
				"removeRangesApplied": applied,
			},
		})
		cursor += dur
	}

	if fps < 1 {
		fps = 1
	}
	now := time.Now().UTC()
	return &Timeline{
		ID:         "timeline-" + uuid.NewString(),
		ProjectID:  projectID,
		Version:    1,
		Status:     "ROUGH_CUT_READY",
		FPS:        fps,
		DurationUs: cursor,
		CreatedAt:  now,
		UpdatedAt:  now,
		Tracks:     []Track{videoTrack, captionsTrack},
		Clips:      clips,
	}
}
