package main

import (
	"context"
	"fmt"
	"time"

	"fireview/internal/scheduler"

	"github.com/spf13/cobra"
)

func addWatchCmd(rootCmd *cobra.Command) {
	var (
		area     string
		output   string
		interval time.Duration
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a map page of the latest forecast up to date",
		Long: `Reload the latest date on a fixed interval and rewrite the map page.
Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, err := parseBounds(area)
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.session.Close()

			if cmd.Flags().Changed("output") {
				e.cfg.Watch.Output = output
			}
			if cmd.Flags().Changed("interval") {
				e.cfg.Watch.Interval = interval
			}
			if err := e.session.SetViewport(bounds.SouthWest, bounds.NorthEast); err != nil {
				return err
			}

			// Log level follows the config file.
			e.cfg.WatchFile(e.logger, nil)

			job := func(ctx context.Context) error {
				latest, err := e.session.LoadLatest(ctx)
				if err != nil {
					return err
				}
				e.session.Wait()
				e.logger.Debug("latest date loaded", "date", latest.Format("2006-01-02"))
				return writeOverlay(cmd, e.session, e.cfg.Watch.Output)
			}

			sched := scheduler.New(e.cfg.Watch.Interval, job, e.logger)
			if err := sched.Start(); err != nil {
				return err
			}
			cmd.Println(fmt.Sprintf("Watch mode activated. Updating %s every %s. Press Ctrl+C to stop.",
				e.cfg.Watch.Output, e.cfg.Watch.Interval))

			<-cmd.Context().Done()
			sched.Stop()
			return nil
		},
	}
	watchCmd.Flags().StringVarP(&area, "bounds", "b", "35,-10,45,5", "Viewport as south,west,north,east")
	watchCmd.Flags().StringVarP(&output, "output", "o", "", "Output HTML file (default from config)")
	watchCmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Refresh interval (default from config)")
	rootCmd.AddCommand(watchCmd)
}
