package transcribe

import (
	"fmt"
	"time"

	"github.com/lapaas/roughcut/internal/config"
	"github.com/lapaas/roughcut/internal/runtimes"
)

const providerTimeout = 5 * time.Minute

// NewProvider instantiates the client named by a selection descriptor.
// Descriptors without a runtime have no provider; callers take the
// synthetic-transcript path instead.
func NewProvider(desc Descriptor, cfg *config.Config) (Provider, error) {
	switch desc.Runtime {
	case runtimes.FasterWhisper:
		return NewFasterWhisperClient(cfg.PythonBin, cfg.FasterWhisperPath, desc.Model, providerTimeout), nil
	case runtimes.WhisperCpp:
		return NewWhisperCppClient(cfg.WhisperCppBin, cfg.WhisperCppModel, cfg.DataDir, providerTimeout), nil
	case runtimes.ElevenLabs:
		return NewElevenLabsClient(cfg.ElevenLabsAPIKey, desc.Model, providerTimeout), nil
	case runtimes.DeepInfra:
		return NewDeepInfraClient(cfg.DeepInfraAPIKey, desc.Model, providerTimeout), nil
	default:
		return nil, fmt.Errorf("no provider for runtime %q", desc.Runtime)
	}
}

// ModelsFromConfig builds the model set handed to Select.
func ModelsFromConfig(cfg *config.Config) ModelSet {
	return ModelSet{
		FasterWhisper: cfg.FasterWhisperModel,
		WhisperCpp:    cfg.WhisperCppModel,
		WhisperCppBin: cfg.WhisperCppBin,
		ElevenLabs:    cfg.ElevenLabsModel,
		DeepInfra:     cfg.DeepInfraModel,
	}
}
