// Package config loads runtime settings from the environment (.env autoloaded)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
)

// Primary evaluation sources
const (
	PrimaryCloud = "cloud"
	PrimaryLocal = "local"
)

// Fallback evaluation sources
const (
	FallbackService = "service"
	FallbackLocal   = "local"
	FallbackNone    = "none"
)

type Config struct {
	Logs      LogConfig
	Engine    EngineConfig
	Eval      EvalConfig
	Vision    VisionConfig
	Selector  SelectorConfig
	APISecret string `validate:"omitempty,min=32"`
}

type LogConfig struct {
	Style string `validate:"oneof=json console"`
	Level string `validate:"oneof=trace debug info warn error"`
}

type EngineConfig struct {
	Path     string
	MoveTime int `validate:"min=0"` // milliseconds
	Depth    int `validate:"min=0,max=60"`
	Threads  int `validate:"min=0"`
	HashMB   int `validate:"min=0"`
}

type EvalConfig struct {
	Primary       string `validate:"oneof=cloud local"`
	Fallback      string `validate:"oneof=service local none"`
	CloudURL      string `validate:"omitempty,url"`
	FallbackURL   string `validate:"omitempty,url"`
	MinInterval   time.Duration
	Cooldown      time.Duration
	Variations    int           `validate:"min=1,max=5"`
	FallbackDepth int           `validate:"min=1,max=30"`
}

type VisionConfig struct {
	URL    string `validate:"omitempty,url"`
	APIKey string
	Model  string
}

type SelectorConfig struct {
	TargetRating int `validate:"min=100,max=3500"`
}

var validate = validator.New()

// Load reads the environment, applies defaults and validates the result
func Load() (*Config, error) {
	var errs []string
	intVar := func(key string, def int) int {
		v, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := &Config{
		Logs: LogConfig{
			Style: strings.ToLower(envString("LOG_STYLE", "console")),
			Level: strings.ToLower(envString("LOG_LEVEL", "info")),
		},
		Engine: EngineConfig{
			Path:     envString("ENGINE_PATH", "stockfish"),
			MoveTime: intVar("ENGINE_MOVE_TIME", 1000),
			Depth:    intVar("ENGINE_DEPTH", 0),
			Threads:  intVar("ENGINE_THREADS", 0),
			HashMB:   intVar("ENGINE_HASH_MB", 0),
		},
		Eval: EvalConfig{
			Primary:       strings.ToLower(envString("EVAL_PRIMARY", PrimaryCloud)),
			Fallback:      strings.ToLower(envString("EVAL_FALLBACK", FallbackService)),
			CloudURL:      envString("CLOUD_EVAL_URL", ""),
			FallbackURL:   envString("FALLBACK_EVAL_URL", ""),
			MinInterval:   durVar("EVAL_MIN_INTERVAL", time.Second),
			Cooldown:      durVar("EVAL_COOLDOWN", time.Minute),
			Variations:    intVar("MULTIPV", 3),
			FallbackDepth: intVar("FALLBACK_DEPTH", 12),
		},
		Vision: VisionConfig{
			URL:    envString("VISION_URL", ""),
			APIKey: envString("VISION_API_KEY", ""),
			Model:  envString("VISION_MODEL", "gpt-4o"),
		},
		Selector: SelectorConfig{
			TargetRating: intVar("TARGET_RATING", 1500),
		},
		APISecret: envString("API_SECRET", ""),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// VisionEnabled reports whether a vision endpoint can be called
func (c *Config) VisionEnabled() bool {
	return c.Vision.APIKey != "" || c.Vision.URL != ""
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := envString(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// envDuration accepts Go durations ("1500ms") or bare seconds ("60")
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := envString(key, "")
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}
