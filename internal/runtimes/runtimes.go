package runtimes

import (
	"os"
	"os/exec"

	"github.com/rs/zerolog"
)

// Runtime identifiers. These are the values carried in adapter descriptors
// and telemetry, so they are stable strings rather than Go-side enums.
const (
	FasterWhisper = "faster-whisper"
	WhisperCpp    = "whisper-cpp"
	ElevenLabs    = "elevenlabs"
	DeepInfra     = "deepinfra"
)

// Capabilities is the host capability snapshot: which local ASR runtimes and
// API credentials are available. It is probed once per pipeline run and
// passed explicitly, keeping adapter selection a pure function of its inputs.
type Capabilities struct {
	FasterWhisper bool // python + transcribe script present
	WhisperCpp    bool // whisper.cpp binary present

	ElevenLabsKey bool
	DeepInfraKey  bool
	OpenRouterKey bool
}

// HasLocal reports whether any local ASR runtime is available.
func (c Capabilities) HasLocal() bool {
	return c.FasterWhisper || c.WhisperCpp
}

// HasAPIKey reports whether any transcription API credential is present.
func (c Capabilities) HasAPIKey() bool {
	return c.ElevenLabsKey || c.DeepInfraKey
}

// ProbeSpec names the binaries, scripts and keys to check.
type ProbeSpec struct {
	PythonBin         string // e.g. "python3"
	FasterWhisperPath string // transcribe script path
	WhisperCppBin     string // whisper.cpp main binary
	WhisperCppModel   string // ggml model path

	ElevenLabsAPIKey string
	DeepInfraAPIKey  string
	OpenRouterAPIKey string
}

// Detect probes the host once and returns the capability snapshot.
func Detect(spec ProbeSpec, log zerolog.Logger) Capabilities {
	caps := Capabilities{
		ElevenLabsKey: spec.ElevenLabsAPIKey != "",
		DeepInfraKey:  spec.DeepInfraAPIKey != "",
		OpenRouterKey: spec.OpenRouterAPIKey != "",
	}

	if spec.FasterWhisperPath != "" && fileExists(spec.FasterWhisperPath) && binaryOnPath(spec.PythonBin) {
		caps.FasterWhisper = true
	}
	if spec.WhisperCppBin != "" && binaryUsable(spec.WhisperCppBin) && fileExists(spec.WhisperCppModel) {
		caps.WhisperCpp = true
	}

	log.Debug().
		Bool("faster_whisper", caps.FasterWhisper).
		Bool("whisper_cpp", caps.WhisperCpp).
		Bool("elevenlabs_key", caps.ElevenLabsKey).
		Bool("deepinfra_key", caps.DeepInfraKey).
		Bool("openrouter_key", caps.OpenRouterKey).
		Msg("runtime capabilities detected")

	return caps
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func binaryOnPath(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

// binaryUsable accepts either an absolute/relative path or a PATH lookup.
func binaryUsable(name string) bool {
	if fileExists(name) {
		return true
	}
	return binaryOnPath(name)
}
