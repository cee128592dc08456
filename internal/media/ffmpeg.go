package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Per-call timeouts. Probing is quick; window extraction can touch slow
// disks; a silence pass decodes the whole file.
const (
	probeTimeout   = 30 * time.Second
	extractTimeout = 2 * time.Minute
	silenceTimeout = 5 * time.Minute
)

// SampleRate is the PCM sample rate ASR runtimes expect.
const SampleRate = 16000

// Runner invokes ffmpeg/ffprobe as external processes.
type Runner struct {
	ffmpeg  string
	ffprobe string
}

// NewRunner creates a Runner. Empty paths fall back to binaries on PATH.
func NewRunner(ffmpegPath, ffprobePath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Info holds stream metadata from ffprobe.
type Info struct {
	DurationUs int64
	AudioCodec string
	VideoCodec string
}

// probeOutput mirrors the ffprobe JSON structure.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

// Probe returns duration and codec information for a media file.
func (r *Runner) Probe(ctx context.Context, path string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffprobe,
		"-v", "error",
		"-show_entries", "stream=codec_type,codec_name:format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("ffprobe JSON parse: %w", err)
	}

	sec, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
	}

	info := &Info{DurationUs: int64(sec * 1e6)}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
			}
		}
	}
	return info, nil
}

// ExtractAudio extracts the full audio track as mono 16kHz PCM WAV.
func (r *Runner) ExtractAudio(ctx context.Context, in, outWav string) error {
	ctx, cancel := context.WithTimeout(ctx, silenceTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-f", "wav",
		outWav,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(out))
	}
	return nil
}

// ExtractWindow extracts a time-bounded window as mono 16kHz PCM WAV.
func (r *Runner) ExtractWindow(ctx context.Context, in, outWav string, startUs, durUs int64) error {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffmpeg,
		"-y",
		"-ss", fmtSeconds(startUs),
		"-t", fmtSeconds(durUs),
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-f", "wav",
		outWav,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract window [%s+%s]: %w\n%s",
			fmtSeconds(startUs), fmtSeconds(durUs), err, string(out))
	}
	return nil
}

// SilenceRange is one detected silence interval.
type SilenceRange struct {
	StartUs int64
	EndUs   int64
}

var (
	silenceStartRE = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRE   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// DetectSilence runs ffmpeg's silencedetect filter and parses the textual
// markers it writes to stderr. noiseDb is the threshold (e.g. -30), minDur
// the shortest silence reported.
func (r *Runner) DetectSilence(ctx context.Context, in string, noiseDb int, minDur time.Duration) ([]SilenceRange, error) {
	ctx, cancel := context.WithTimeout(ctx, silenceTimeout)
	defer cancel()

	filter := fmt.Sprintf("silencedetect=noise=%ddB:d=%.3f", noiseDb, minDur.Seconds())
	cmd := exec.CommandContext(ctx, r.ffmpeg,
		"-i", in,
		"-af", filter,
		"-f", "null",
		"-",
	)
	// silencedetect writes to stderr; ffmpeg exits 0 on success.
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg silencedetect: %w\n%s", err, truncateOutput(string(out)))
	}
	return ParseSilence(string(out)), nil
}

// ParseSilence extracts silence ranges from silencedetect output. A trailing
// silence_start without a matching silence_end (file ends silent) is dropped.
func ParseSilence(output string) []SilenceRange {
	var ranges []SilenceRange
	var pendingStart *int64
	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRE.FindStringSubmatch(line); m != nil {
			if sec, err := strconv.ParseFloat(m[1], 64); err == nil {
				us := int64(sec * 1e6)
				pendingStart = &us
			}
			continue
		}
		if m := silenceEndRE.FindStringSubmatch(line); m != nil && pendingStart != nil {
			if sec, err := strconv.ParseFloat(m[1], 64); err == nil {
				end := int64(sec * 1e6)
				if end > *pendingStart {
					ranges = append(ranges, SilenceRange{StartUs: *pendingStart, EndUs: end})
				}
			}
			pendingStart = nil
		}
	}
	return ranges
}

func fmtSeconds(us int64) string {
	return strconv.FormatFloat(float64(us)/1e6, 'f', 3, 64)
}

func truncateOutput(s string) string {
	const max = 2000
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
