package transcribe

import (
	"strings"

	"github.com/lapaas/roughcut/internal/config"
	"github.com/lapaas/roughcut/internal/runtimes"
)

// ConfigError marks an impossible caller-requested combination (e.g. local
// mode with no local runtime). It aborts the run before any stage executes;
// every other selection shortfall becomes a descriptor warning instead.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

// Descriptor fully determines how transcription for a run is executed. It is
// constructed once per run and never mutated.
type Descriptor struct {
	Kind           string   `json:"kind"` // "local" or "api"
	Mode           string   `json:"mode"` // run mode the selection was made under
	Runtime        string   `json:"runtime,omitempty"`
	Binary         string   `json:"binary,omitempty"`
	Model          string   `json:"model,omitempty"`
	FallbackPolicy string   `json:"fallbackPolicy"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Usable reports whether the descriptor names an actual engine. A descriptor
// without one sends the pipeline down the synthetic-transcript path.
func (d Descriptor) Usable() bool { return d.Runtime != "" }

// SelectRequest are the caller-controlled selection inputs.
type SelectRequest struct {
	Mode           string
	FallbackPolicy string
	Model          string // explicitly requested provider/model, may be empty
	Language       string
}

// ModelSet resolves model identifiers and binaries per runtime.
type ModelSet struct {
	FasterWhisper string
	WhisperCpp    string
	WhisperCppBin string
	ElevenLabs    string
	DeepInfra     string
}

// specializedLanguages is the fixed set for which the ElevenLabs scribe
// models outperform whisper-family backends; language fit overrides mode.
var specializedLanguages = map[string]bool{
	"hi": true, "bn": true, "ta": true, "te": true, "mr": true,
	"gu": true, "kn": true, "ml": true, "pa": true, "ur": true,
}

// Select maps (mode, fallback policy, requested model, language, detected
// capabilities) to an adapter descriptor. Rules apply in order, first match
// wins:
//
//  1. an explicitly requested credentialed provider whose credential is
//     present is honored;
//  2. the specialized provider is preferred for its language set whenever
//     its credential is present, regardless of mode;
//  3. mode=local requires a local runtime (hard error otherwise);
//  4. mode=api builds an API adapter, degrading to a warning-only
//     descriptor when no credential exists;
//  5. otherwise the fallback policy decides.
func Select(req SelectRequest, caps runtimes.Capabilities, models ModelSet) (Descriptor, error) {
	d, err := resolve(req, caps, models)
	if err != nil {
		return d, err
	}
	d.Mode = req.Mode
	if d.Mode == "" {
		d.Mode = config.ModeHybrid
	}
	return d, nil
}

func resolve(req SelectRequest, caps runtimes.Capabilities, models ModelSet) (Descriptor, error) {
	policy := req.FallbackPolicy
	if policy == "" {
		policy = config.PolicyLocalFirst
	}

	// Rule 1: explicit provider request with credential present.
	if d, ok := explicitProvider(req.Model, policy, caps, models); ok {
		return d, nil
	}

	// Rule 2: language fit overrides mode.
	if caps.ElevenLabsKey && specializedLanguages[req.Language] {
		return elevenLabsDescriptor(policy, models), nil
	}

	switch req.Mode {
	case config.ModeLocal:
		// Rule 3: explicit local request never falls back silently.
		if !caps.HasLocal() {
			return Descriptor{}, ConfigError("local mode requested but no local ASR runtime is available")
		}
		return localDescriptor(policy, caps, models), nil

	case config.ModeAPI:
		// Rule 4: api mode proceeds without a credential, with a warning.
		return apiDescriptor(policy, caps, models), nil
	}

	// Rule 5: hybrid mode applies the fallback policy.
	switch policy {
	case config.PolicyLocalOnly:
		if !caps.HasLocal() {
			return Descriptor{}, ConfigError("local-only fallback policy but no local ASR runtime is available")
		}
		return localDescriptor(policy, caps, models), nil

	case config.PolicyAPIOnly:
		if !caps.HasAPIKey() {
			return Descriptor{}, ConfigError("api-only fallback policy but no transcription API credential is configured")
		}
		return apiDescriptor(policy, caps, models), nil

	case config.PolicyAPIFirst:
		if caps.HasAPIKey() {
			return apiDescriptor(policy, caps, models), nil
		}
		if caps.HasLocal() {
			d := localDescriptor(policy, caps, models)
			d.Warnings = append(d.Warnings, "no transcription API credential; falling back to local runtime")
			return d, nil
		}
		return Descriptor{}, ConfigError("api-first fallback policy but neither API credential nor local runtime is available")

	default: // local-first
		if caps.HasLocal() {
			return localDescriptor(policy, caps, models), nil
		}
		if caps.HasAPIKey() {
			d := apiDescriptor(policy, caps, models)
			d.Warnings = append(d.Warnings, "no local ASR runtime; falling back to API provider")
			return d, nil
		}
		// Nothing available: the run still proceeds on a synthetic
		// transcript rather than aborting.
		return Descriptor{
			Kind:           "api",
			FallbackPolicy: policy,
			Warnings:       []string{"no local ASR runtime and no API credential; transcript will be synthesized"},
		}, nil
	}
}

// explicitProvider honors an explicitly named provider when its credential
// is present. Unknown or uncredentialed requests fall through to the general
// rules rather than failing.
func explicitProvider(model, policy string, caps runtimes.Capabilities, models ModelSet) (Descriptor, bool) {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return Descriptor{}, false
	}
	switch {
	case (strings.Contains(m, "scribe") || strings.Contains(m, "elevenlabs")) && caps.ElevenLabsKey:
		d := elevenLabsDescriptor(policy, models)
		if strings.HasPrefix(m, "scribe") {
			d.Model = m
		}
		return d, true
	case strings.Contains(m, "deepinfra") && caps.DeepInfraKey:
		return Descriptor{
			Kind:           "api",
			Runtime:        runtimes.DeepInfra,
			Model:          models.DeepInfra,
			FallbackPolicy: policy,
		}, true
	}
	return Descriptor{}, false
}

func elevenLabsDescriptor(policy string, models ModelSet) Descriptor {
	return Descriptor{
		Kind:           "api",
		Runtime:        runtimes.ElevenLabs,
		Model:          models.ElevenLabs,
		FallbackPolicy: policy,
	}
}

func localDescriptor(policy string, caps runtimes.Capabilities, models ModelSet) Descriptor {
	if caps.FasterWhisper {
		return Descriptor{
			Kind:           "local",
			Runtime:        runtimes.FasterWhisper,
			Model:          models.FasterWhisper,
			FallbackPolicy: policy,
		}
	}
	return Descriptor{
		Kind:           "local",
		Runtime:        runtimes.WhisperCpp,
		Binary:         models.WhisperCppBin,
		Model:          models.WhisperCpp,
		FallbackPolicy: policy,
	}
}

func apiDescriptor(policy string, caps runtimes.Capabilities, models ModelSet) Descriptor {
	switch {
	case caps.ElevenLabsKey:
		return elevenLabsDescriptor(policy, models)
	case caps.DeepInfraKey:
		return Descriptor{
			Kind:           "api",
			Runtime:        runtimes.DeepInfra,
			Model:          models.DeepInfra,
			FallbackPolicy: policy,
		}
	default:
		return Descriptor{
			Kind:           "api",
			FallbackPolicy: policy,
			Warnings:       []string{"no transcription API credential configured; transcript will be synthesized"},
		}
	}
}
