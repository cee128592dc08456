package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Pipeline modes and fallback policies accepted by the Adapter Selector.
const (
	ModeLocal  = "local"
	ModeAPI    = "api"
	ModeHybrid = "hybrid"

	PolicyLocalFirst = "local-first"
	PolicyAPIFirst   = "api-first"
	PolicyLocalOnly  = "local-only"
	PolicyAPIOnly    = "api-only"
)

type Config struct {
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	MediaDir string `env:"MEDIA_DIR"`

	FFmpegPath  string `env:"FFMPEG_PATH"`
	FFprobePath string `env:"FFPROBE_PATH"`

	PythonBin          string `env:"PYTHON_BIN" envDefault:"python3"`
	FasterWhisperPath  string `env:"FASTER_WHISPER_SCRIPT" envDefault:"./scripts/transcribe_faster_whisper.py"`
	FasterWhisperModel string `env:"FASTER_WHISPER_MODEL" envDefault:"small"`
	WhisperCppBin      string `env:"WHISPER_CPP_BIN"`
	WhisperCppModel    string `env:"WHISPER_CPP_MODEL"`

	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsModel  string `env:"ELEVENLABS_MODEL" envDefault:"scribe_v1"`
	DeepInfraAPIKey  string `env:"DEEPINFRA_API_KEY"`
	DeepInfraModel   string `env:"DEEPINFRA_MODEL" envDefault:"openai/whisper-large-v3-turbo"`

	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	CutPlannerModel   string `env:"CUT_PLANNER_MODEL" envDefault:"openai/gpt-4.1-mini"`
	TemplateModel     string `env:"TEMPLATE_PLANNER_MODEL" envDefault:"openai/gpt-4.1-mini"`

	Mode           string `env:"MODE" envDefault:"hybrid"`
	FallbackPolicy string `env:"FALLBACK_POLICY" envDefault:"local-first"`
	Language       string `env:"LANGUAGE" envDefault:"en"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile        string
	DataDir        string
	Mode           string
	FallbackPolicy string
	Language       string
	HTTPAddr       string
	LogLevel       string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.DataDir != "" {
		cfg.DataDir = overrides.DataDir
	}
	if overrides.Mode != "" {
		cfg.Mode = overrides.Mode
	}
	if overrides.FallbackPolicy != "" {
		cfg.FallbackPolicy = overrides.FallbackPolicy
	}
	if overrides.Language != "" {
		cfg.Language = overrides.Language
	}
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeLocal, ModeAPI, ModeHybrid:
	default:
		return fmt.Errorf("invalid MODE %q: must be local, api or hybrid", c.Mode)
	}
	switch c.FallbackPolicy {
	case PolicyLocalFirst, PolicyAPIFirst, PolicyLocalOnly, PolicyAPIOnly:
	default:
		return fmt.Errorf("invalid FALLBACK_POLICY %q", c.FallbackPolicy)
	}
	return nil
}
