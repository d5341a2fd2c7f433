package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LOG_STYLE", "LOG_LEVEL", "EVAL_PRIMARY", "EVAL_FALLBACK", "MULTIPV", "TARGET_RATING", "EVAL_MIN_INTERVAL", "EVAL_COOLDOWN", "API_SECRET", "VISION_URL", "VISION_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Eval.Primary != PrimaryCloud || cfg.Eval.Fallback != FallbackService {
		t.Errorf("eval sources = %s/%s", cfg.Eval.Primary, cfg.Eval.Fallback)
	}
	if cfg.Eval.MinInterval != time.Second || cfg.Eval.Cooldown != time.Minute {
		t.Errorf("intervals = %v/%v", cfg.Eval.MinInterval, cfg.Eval.Cooldown)
	}
	if cfg.Eval.Variations != 3 || cfg.Selector.TargetRating != 1500 {
		t.Errorf("variations/rating = %d/%d", cfg.Eval.Variations, cfg.Selector.TargetRating)
	}
	if cfg.VisionEnabled() {
		t.Error("vision should be disabled without url or key")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TARGET_RATING", "2100")
	t.Setenv("EVAL_PRIMARY", "LOCAL")
	t.Setenv("EVAL_FALLBACK", "none")
	t.Setenv("EVAL_MIN_INTERVAL", "1500ms")
	t.Setenv("EVAL_COOLDOWN", "90")
	t.Setenv("LOG_STYLE", "json")
	t.Setenv("VISION_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Selector.TargetRating != 2100 || cfg.Eval.Primary != PrimaryLocal || cfg.Eval.Fallback != FallbackNone {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Eval.MinInterval != 1500*time.Millisecond || cfg.Eval.Cooldown != 90*time.Second {
		t.Errorf("intervals = %v/%v", cfg.Eval.MinInterval, cfg.Eval.Cooldown)
	}
	if !cfg.VisionEnabled() {
		t.Error("vision should be enabled with an api key")
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TARGET_RATING", "abc"},
		{"TARGET_RATING", "50"},
		{"MULTIPV", "9"},
		{"EVAL_PRIMARY", "carrier-pigeon"},
		{"EVAL_COOLDOWN", "soon"},
		{"API_SECRET", "short"},
		{"LOG_STYLE", "xml"},
		{"CLOUD_EVAL_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Style: "json", Level: "warn"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want only the warn entry", lines)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not json: %v", err)
	}
	if entry["message"] != "shown" || entry["component"] != "test" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
}
