package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts Opts) (*Response, error)
	Name() string  // "faster-whisper", "elevenlabs", ...
	Model() string // model identifier for artifacts/logs
}

// Opts are per-request options shared by all providers. Zero-value fields
// are omitted from requests.
type Opts struct {
	Language string
	Hotwords string // comma-separated vocabulary boost terms
}

// Response is the common transcription result from any provider. Timestamps
// are seconds from the start of the submitted audio; the normalizer converts
// them to canonical microseconds.
type Response struct {
	Text     string
	Language string
	Duration float64   // audio duration in seconds, 0 if unknown
	Words    []Word    // nil if the provider has no word timestamps
	Segments []Segment // nil if the provider has no segment timing
}

// Word is a timestamped word from any STT provider.
type Word struct {
	Word       string
	Start      float64
	End        float64
	Confidence float64
}

// Segment is a segment-level span from any STT provider.
type Segment struct {
	Text       string
	Start      float64
	End        float64
	Confidence float64
}
