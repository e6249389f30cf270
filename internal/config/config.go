package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"fireview/internal/palette"
	"fireview/internal/types"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Log    LogConfig
	API    APIConfig
	Viewer ViewerConfig
	Watch  WatchConfig

	v     *viper.Viper
	level *slog.LevelVar
	out   io.Writer
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port    int
	GinMode string // debug, release, test
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// APIConfig points at the fire-risk backend
type APIConfig struct {
	BaseURL   string
	RateLimit float64 // requests per second, 0 disables
	Burst     int
}

// ViewerConfig holds the initial view and palette overrides
type ViewerConfig struct {
	Index      string
	Mode       string
	Thresholds map[string][]float64
}

// WatchConfig controls the periodic latest-date refresh
type WatchConfig struct {
	Interval time.Duration
	Output   string
}

// Load reads configuration from .env, the config file and environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.fireview")
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ginmode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("api.baseurl", "http://localhost:8000")
	v.SetDefault("api.ratelimit", 0)
	v.SetDefault("api.burst", 1)
	v.SetDefault("viewer.index", "pof")
	v.SetDefault("viewer.mode", "by_date")
	v.SetDefault("watch.interval", "15m")
	v.SetDefault("watch.output", "fireview.html")

	// FIREVIEW_API_BASEURL overrides api.baseurl
	v.SetEnvPrefix("FIREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	cfg.v = v
	cfg.level = new(slog.LevelVar)
	cfg.level.Set(parseLevel(cfg.Log.Level))
	cfg.out = os.Stdout

	return cfg, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.API.BaseURL == "" {
		return nil, errors.New("api.baseurl is required")
	}
	if cfg.Watch.Interval <= 0 {
		return nil, fmt.Errorf("watch.interval must be positive, got %s", cfg.Watch.Interval)
	}
	return &cfg, nil
}

// GetServerAddr returns the server address in the format ":port"
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// ViewerIndex parses viewer.index
func (c *Config) ViewerIndex() (types.Index, error) {
	return types.ParseIndex(c.Viewer.Index)
}

// ViewerMode parses viewer.mode
func (c *Config) ViewerMode() (types.Mode, error) {
	return types.ParseMode(c.Viewer.Mode)
}

// Palettes builds the colour scales with any configured thresholds applied
func (c *Config) Palettes() (palette.Set, error) {
	return palette.NewSet(c.Viewer.Thresholds)
}

// ConfigFile is the file the configuration was read from, if any
func (c *Config) ConfigFile() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// SetLogLevel overrides log.level, including for loggers already created.
func (c *Config) SetLogLevel(level string) {
	c.Log.Level = level
	if c.level != nil {
		c.level.Set(parseLevel(level))
	}
}

// NewLogger creates a new slog.Logger based on the configuration. Its level
// follows log.level across config reloads.
func (c *Config) NewLogger() *slog.Logger {
	if c.level == nil {
		c.level = new(slog.LevelVar)
		c.level.Set(parseLevel(c.Log.Level))
	}
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: c.level,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default: // "text" or anything else
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// WatchFile re-reads the config file when it changes. The new log level is
// applied immediately; onChange, if set, receives the reloaded config.
func (c *Config) WatchFile(logger *slog.Logger, onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		logger.Debug("no config file to watch")
		return
	}

	var mu sync.Mutex
	c.v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		next, err := unmarshal(c.v)
		if err != nil {
			logger.Error("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		next.v = c.v
		next.level = c.level
		next.out = c.out
		c.level.Set(parseLevel(next.Log.Level))

		logger.Info("config reloaded", "file", e.Name, "op", e.Op.String(), "log_level", next.Log.Level)
		if onChange != nil {
			onChange(next)
		}
	})
	c.v.WatchConfig()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
