package transcribe

import (
	"errors"
	"testing"

	"github.com/lapaas/roughcut/internal/config"
	"github.com/lapaas/roughcut/internal/runtimes"
)

var testModels = ModelSet{
	FasterWhisper: "large-v3",
	WhisperCpp:    "/models/ggml-base.bin",
	WhisperCppBin: "/usr/local/bin/whisper-cli",
	ElevenLabs:    "scribe_v1",
	DeepInfra:     "openai/whisper-large-v3-turbo",
}

func TestSelect(t *testing.T) {
	cases := []struct {
		name        string
		req         SelectRequest
		caps        runtimes.Capabilities
		wantRuntime string
		wantKind    string
		wantErr     bool
	}{
		{
			name:        "local_mode_with_faster_whisper",
			req:         SelectRequest{Mode: config.ModeLocal, FallbackPolicy: config.PolicyLocalFirst},
			caps:        runtimes.Capabilities{FasterWhisper: true},
			wantRuntime: runtimes.FasterWhisper,
			wantKind:    "local",
		},
		{
			name:        "local_mode_whisper_cpp_only",
			req:         SelectRequest{Mode: config.ModeLocal},
			caps:        runtimes.Capabilities{WhisperCpp: true},
			wantRuntime: runtimes.WhisperCpp,
			wantKind:    "local",
		},
		{
			name:    "local_mode_without_runtime_is_config_error",
			req:     SelectRequest{Mode: config.ModeLocal},
			caps:    runtimes.Capabilities{ElevenLabsKey: true},
			wantErr: true,
		},
		{
			name:        "api_mode_prefers_elevenlabs",
			req:         SelectRequest{Mode: config.ModeAPI},
			caps:        runtimes.Capabilities{ElevenLabsKey: true, DeepInfraKey: true},
			wantRuntime: runtimes.ElevenLabs,
			wantKind:    "api",
		},
		{
			name:        "api_mode_deepinfra_fallback",
			req:         SelectRequest{Mode: config.ModeAPI},
			caps:        runtimes.Capabilities{DeepInfraKey: true},
			wantRuntime: runtimes.DeepInfra,
			wantKind:    "api",
		},
		{
			name:        "hybrid_local_first_prefers_local",
			req:         SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyLocalFirst},
			caps:        runtimes.Capabilities{FasterWhisper: true, ElevenLabsKey: true},
			wantRuntime: runtimes.FasterWhisper,
			wantKind:    "local",
		},
		{
			name:        "hybrid_local_first_falls_back_to_api",
			req:         SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyLocalFirst},
			caps:        runtimes.Capabilities{ElevenLabsKey: true},
			wantRuntime: runtimes.ElevenLabs,
			wantKind:    "api",
		},
		{
			name:        "hybrid_api_first_prefers_api",
			req:         SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyAPIFirst},
			caps:        runtimes.Capabilities{FasterWhisper: true, DeepInfraKey: true},
			wantRuntime: runtimes.DeepInfra,
			wantKind:    "api",
		},
		{
			name:        "hybrid_api_first_falls_back_to_local",
			req:         SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyAPIFirst},
			caps:        runtimes.Capabilities{WhisperCpp: true},
			wantRuntime: runtimes.WhisperCpp,
			wantKind:    "local",
		},
		{
			name:    "hybrid_api_first_nothing_available",
			req:     SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyAPIFirst},
			caps:    runtimes.Capabilities{},
			wantErr: true,
		},
		{
			name:    "local_only_without_runtime",
			req:     SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyLocalOnly},
			caps:    runtimes.Capabilities{ElevenLabsKey: true},
			wantErr: true,
		},
		{
			name:    "api_only_without_credential",
			req:     SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyAPIOnly},
			caps:    runtimes.Capabilities{FasterWhisper: true},
			wantErr: true,
		},
		{
			name:        "specialized_language_overrides_local_mode",
			req:         SelectRequest{Mode: config.ModeLocal, Language: "hi"},
			caps:        runtimes.Capabilities{FasterWhisper: true, ElevenLabsKey: true},
			wantRuntime: runtimes.ElevenLabs,
			wantKind:    "api",
		},
		{
			name:        "specialized_language_without_credential_stays_local",
			req:         SelectRequest{Mode: config.ModeLocal, Language: "ta"},
			caps:        runtimes.Capabilities{FasterWhisper: true},
			wantRuntime: runtimes.FasterWhisper,
			wantKind:    "local",
		},
		{
			name:        "explicit_scribe_model_honored",
			req:         SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyLocalFirst, Model: "scribe_v1"},
			caps:        runtimes.Capabilities{FasterWhisper: true, ElevenLabsKey: true},
			wantRuntime: runtimes.ElevenLabs,
			wantKind:    "api",
		},
		{
			name:        "explicit_model_without_credential_falls_through",
			req:         SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyLocalFirst, Model: "scribe_v1"},
			caps:        runtimes.Capabilities{FasterWhisper: true},
			wantRuntime: runtimes.FasterWhisper,
			wantKind:    "local",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Select(tc.req, tc.caps, testModels)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", d)
				}
				var ce ConfigError
				if !errors.As(err, &ce) {
					t.Errorf("error type = %T, want ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error: %v", err)
			}
			if d.Runtime != tc.wantRuntime {
				t.Errorf("runtime = %q, want %q", d.Runtime, tc.wantRuntime)
			}
			if d.Kind != tc.wantKind {
				t.Errorf("kind = %q, want %q", d.Kind, tc.wantKind)
			}
		})
	}
}

func TestSelect_NothingAvailableIsNotAnError(t *testing.T) {
	// Hybrid local-first with no capability at all still yields a descriptor;
	// the pipeline synthesizes a transcript instead of aborting.
	d, err := Select(SelectRequest{Mode: config.ModeHybrid, FallbackPolicy: config.PolicyLocalFirst},
		runtimes.Capabilities{}, testModels)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if d.Usable() {
		t.Errorf("descriptor should not be usable: %+v", d)
	}
	if len(d.Warnings) == 0 {
		t.Error("expected a warning on the descriptor")
	}
}

func TestSelect_LocalModeNeverSelectsAPI(t *testing.T) {
	// Outside the specialized language set, local mode either yields a local
	// runtime or a hard error; it never silently picks an API provider.
	capsVariants := []runtimes.Capabilities{
		{FasterWhisper: true, ElevenLabsKey: true, DeepInfraKey: true},
		{WhisperCpp: true, DeepInfraKey: true},
		{ElevenLabsKey: true, DeepInfraKey: true},
	}
	for _, caps := range capsVariants {
		d, err := Select(SelectRequest{Mode: config.ModeLocal, Language: "en"}, caps, testModels)
		if err != nil {
			continue
		}
		if d.Kind != "local" {
			t.Errorf("caps %+v: kind = %q, want local", caps, d.Kind)
		}
	}
}

func TestSelect_RecordsRunMode(t *testing.T) {
	caps := runtimes.Capabilities{FasterWhisper: true}

	d, err := Select(SelectRequest{Mode: config.ModeLocal}, caps, testModels)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if d.Mode != config.ModeLocal {
		t.Errorf("mode = %q, want %q", d.Mode, config.ModeLocal)
	}

	d, err = Select(SelectRequest{}, caps, testModels)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if d.Mode != config.ModeHybrid {
		t.Errorf("mode = %q, want %q for an empty request", d.Mode, config.ModeHybrid)
	}
}

func TestSelect_DefaultPolicy(t *testing.T) {
	d, err := Select(SelectRequest{Mode: config.ModeHybrid}, runtimes.Capabilities{FasterWhisper: true}, testModels)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if d.FallbackPolicy != config.PolicyLocalFirst {
		t.Errorf("fallbackPolicy = %q, want %q", d.FallbackPolicy, config.PolicyLocalFirst)
	}
}
