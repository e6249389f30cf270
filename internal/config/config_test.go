package config

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fireview/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
log:
  level: debug
  format: json
api:
  baseurl: https://fire.example.org
  ratelimit: 4
  burst: 2
viewer:
  index: fopi
  mode: by_forecast
  thresholds:
    fopi: [0.1, 0.3, 0.5, 0.7, 0.9]
watch:
  interval: 5m
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.GetServerAddr() != ":9090" {
		t.Errorf("addr = %q", cfg.GetServerAddr())
	}
	if cfg.API.BaseURL != "https://fire.example.org" || cfg.API.RateLimit != 4 || cfg.API.Burst != 2 {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Watch.Interval != 5*time.Minute {
		t.Errorf("watch interval = %v", cfg.Watch.Interval)
	}
	if cfg.ConfigFile() != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile())
	}

	index, err := cfg.ViewerIndex()
	if err != nil || index != types.IndexFOPI {
		t.Errorf("ViewerIndex = %v, %v", index, err)
	}
	mode, err := cfg.ViewerMode()
	if err != nil || mode != types.ByForecast {
		t.Errorf("ViewerMode = %v, %v", mode, err)
	}

	scales, err := cfg.Palettes()
	if err != nil {
		t.Fatalf("Palettes: %v", err)
	}
	fopi, _ := scales.Scale(types.IndexFOPI)
	if got := fopi.Classify(0.2).Name; got != "Low" {
		t.Errorf("threshold override not applied: %q", got)
	}
}

func TestLoadFile_DefaultsAndEnv(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	t.Setenv("FIREVIEW_API_BASEURL", "http://backend:8000")
	t.Setenv("FIREVIEW_SERVER_PORT", "7000")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"base url from env", cfg.API.BaseURL, "http://backend:8000"},
		{"port from env", cfg.Server.Port, 7000},
		{"gin mode default", cfg.Server.GinMode, "release"},
		{"index default", cfg.Viewer.Index, "pof"},
		{"mode default", cfg.Viewer.Mode, "by_date"},
		{"interval default", cfg.Watch.Interval, 15 * time.Minute},
		{"level from file", cfg.Log.Level, "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}

	path := writeConfig(t, "viewer:\n  thresholds:\n    pof: [0.5]\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := cfg.Palettes(); err == nil {
		t.Error("expected bad thresholds to be rejected")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level     string
		format    string
		wantDebug bool
		wantJSON  bool
	}{
		{"debug", "text", true, false},
		{"info", "json", false, true},
		{"WARNING", "text", false, false},
		{"bogus", "text", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &Config{Log: LogConfig{Level: tt.level, Format: tt.format}, out: &buf}
			logger := cfg.NewLogger()

			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			logger.Error("boom", "component", "test")
			if got := strings.HasPrefix(buf.String(), "{"); got != tt.wantJSON {
				t.Errorf("json output = %v, got %q", got, buf.String())
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "info"}, out: io.Discard}
	logger := cfg.NewLogger()
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug enabled at info level")
	}

	cfg.SetLogLevel("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("existing logger did not follow SetLogLevel")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestWatchFile_AppliesLogLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.out = io.Discard
	logger := cfg.NewLogger()

	reloaded := make(chan *Config, 1)
	cfg.WatchFile(logger, func(next *Config) {
		select {
		case reloaded <- next:
		default:
		}
	})

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case next := <-reloaded:
		if next.Log.Level != "debug" {
			t.Errorf("reloaded level = %q", next.Log.Level)
		}
		if !logger.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("existing logger did not pick up the new level")
		}
	case <-time.After(5 * time.Second):
		t.Skip("no file change notification on this filesystem")
	}
}
