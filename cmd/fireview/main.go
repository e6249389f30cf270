package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fireview/internal/config"
	"fireview/internal/providers/firerisk"
	"fireview/internal/timezone"
	"fireview/internal/viewer"

	"github.com/spf13/cobra"
)

var (
	configPath string
	baseURL    string
	indexName  string
	modeName   string
	verbose    bool
)

// env is what every subcommand needs once flags are parsed.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *firerisk.Client
	session *viewer.Session
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "fireview",
		Short: "Browse fire-risk forecasts from the command line",
		Long: `fireview loads forecast steps, renders risk overlays and queries point
values from a fire-risk backend. Overlays are written as standalone HTML
maps or raw images.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Fire-risk backend URL")
	rootCmd.PersistentFlags().StringVar(&indexName, "index", "", "Risk index: pof or fopi")
	rootCmd.PersistentFlags().StringVar(&modeName, "mode", "", "Timeline mode: by_date or by_forecast")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	addStepsCmd(rootCmd)
	addOverlayCmd(rootCmd)
	addTooltipCmd(rootCmd)
	addAnalyticsCmd(rootCmd)
	addWatchCmd(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides and opens a viewer session.
// The caller closes the session.
func setup() (*env, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if indexName != "" {
		cfg.Viewer.Index = indexName
	}
	if modeName != "" {
		cfg.Viewer.Mode = modeName
	}
	if verbose {
		cfg.SetLogLevel("debug")
	}

	index, err := cfg.ViewerIndex()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.ViewerMode()
	if err != nil {
		return nil, err
	}
	scales, err := cfg.Palettes()
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger()
	client := firerisk.NewClient(cfg.API.BaseURL, logger, firerisk.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst))

	zones, err := timezone.NewResolver()
	if err != nil {
		logger.Warn("timezone lookup disabled", "error", err)
	}

	session, err := viewer.NewSession(client, viewer.Options{
		Index:  index,
		Mode:   mode,
		Scales: scales,
		Zones:  zones,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, client: client, session: session}, nil
}
