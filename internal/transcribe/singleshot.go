package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lapaas/roughcut/internal/media"
)

// SingleShot extracts the full audio track once and submits it to the
// provider in a single call. Local runtimes have no request size limit, so
// windowed chunking would only multiply process spawns.
func SingleShot(ctx context.Context, runner *media.Runner, provider Provider, sourcePath string, opts Opts) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, transcriptionTimeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "roughcut-audio-*")
	if err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	wav := filepath.Join(tmpDir, "audio.wav")
	if err := runner.ExtractAudio(ctx, sourcePath, wav); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}
	return provider.Transcribe(ctx, wav, opts)
}
