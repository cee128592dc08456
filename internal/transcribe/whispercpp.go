package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// WhisperCppClient runs a local whisper.cpp binary. Output is requested as a
// JSON file next to a caller-provided prefix; offsets are milliseconds.
type WhisperCppClient struct {
	bin     string
	model   string
	workDir string
	timeout time.Duration
}

// whisperCppResult mirrors whisper.cpp's -oj output file.
type whisperCppResult struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"` // ms
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}

// NewWhisperCppClient creates a local whisper.cpp provider. workDir holds
// the per-call output directories; empty means the system temp dir.
func NewWhisperCppClient(bin, model, workDir string, timeout time.Duration) *WhisperCppClient {
	return &WhisperCppClient{bin: bin, model: model, workDir: workDir, timeout: timeout}
}

// Name returns the provider name.
func (wc *WhisperCppClient) Name() string { return "whisper-cpp" }

// Model returns the configured model path.
func (wc *WhisperCppClient) Model() string { return filepath.Base(wc.model) }

// Transcribe runs whisper.cpp against an audio file. Word timing is not
// requested; segment offsets are returned and the normalizer synthesizes
// word spans.
func (wc *WhisperCppClient) Transcribe(ctx context.Context, audioPath string, opts Opts) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, wc.timeout)
	defer cancel()

	// Concurrent calls share the client, so each invocation gets its own
	// output directory.
	outDir, err := os.MkdirTemp(wc.workDir, "whispercpp-*")
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	outPrefix := filepath.Join(outDir, "transcript")
	args := []string{
		"-m", wc.model,
		"-f", audioPath,
		"-oj",
		"-of", outPrefix,
	}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}

	cmd := exec.CommandContext(ctx, wc.bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper.cpp: %w\n%s", err, tail(string(out), 1000))
	}

	raw, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp output: %w", err)
	}

	var result whisperCppResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("whisper.cpp decode: %w", err)
	}

	resp := &Response{Language: result.Result.Language}
	var text strings.Builder
	for _, seg := range result.Transcription {
		t := strings.TrimSpace(seg.Text)
		if t == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(t)
		resp.Segments = append(resp.Segments, Segment{
			Text:  t,
			Start: float64(seg.Offsets.From) / 1000.0,
			End:   float64(seg.Offsets.To) / 1000.0,
		})
	}
	resp.Text = text.String()
	return resp, nil
}
