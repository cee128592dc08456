package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// FasterWhisperClient runs the faster-whisper python script for local
// transcription. The script prints one JSON document on stdout with
// word-level timing in microseconds.
type FasterWhisperClient struct {
	python  string
	script  string
	model   string
	timeout time.Duration
}

// fasterWhisperResult mirrors the script's output JSON.
type fasterWhisperResult struct {
	Error    string  `json:"error"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		StartUs    int64   `json:"startUs"`
		EndUs      int64   `json:"endUs"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Words      []struct {
			Text       string  `json:"text"`
			StartUs    int64   `json:"startUs"`
			EndUs      int64   `json:"endUs"`
			Confidence float64 `json:"confidence"`
		} `json:"words"`
	} `json:"segments"`
}

// NewFasterWhisperClient creates a local faster-whisper provider.
func NewFasterWhisperClient(pythonBin, scriptPath, model string, timeout time.Duration) *FasterWhisperClient {
	return &FasterWhisperClient{
		python:  pythonBin,
		script:  scriptPath,
		model:   model,
		timeout: timeout,
	}
}

// Name returns the provider name.
func (fw *FasterWhisperClient) Name() string { return "faster-whisper" }

// Model returns the configured model identifier.
func (fw *FasterWhisperClient) Model() string { return fw.model }

// Transcribe runs the python script against an audio file and parses its
// stdout JSON. Progress lines go to stderr and are ignored.
func (fw *FasterWhisperClient) Transcribe(ctx context.Context, audioPath string, opts Opts) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, fw.timeout)
	defer cancel()

	args := []string{fw.script, audioPath, "--model", fw.model}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}

	cmd := exec.CommandContext(ctx, fw.python, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("faster-whisper: %w\n%s", err, tail(stderr.String(), 1000))
	}

	var result fasterWhisperResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("faster-whisper decode: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("faster-whisper: %s", result.Error)
	}

	resp := &Response{
		Language: result.Language,
		Duration: result.Duration,
	}
	var text bytes.Buffer
	for _, seg := range result.Segments {
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(seg.Text)
		resp.Segments = append(resp.Segments, Segment{
			Text:       seg.Text,
			Start:      float64(seg.StartUs) / 1e6,
			End:        float64(seg.EndUs) / 1e6,
			Confidence: seg.Confidence,
		})
		for _, w := range seg.Words {
			resp.Words = append(resp.Words, Word{
				Word:       w.Text,
				Start:      float64(w.StartUs) / 1e6,
				End:        float64(w.EndUs) / 1e6,
				Confidence: w.Confidence,
			})
		}
	}
	resp.Text = text.String()
	return resp, nil
}

// tail returns the last n bytes of s for error context.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
