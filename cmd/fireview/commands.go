package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fireview/internal/analytics"
	"fireview/internal/geo"
	"fireview/internal/render"
	"fireview/internal/types"
	"fireview/internal/viewer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	dateFlag   string
	boundsFlag string
	stepFlag   int
	outputFlag string
)

var (
	heading = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	warn    = color.New(color.FgRed).SprintFunc()
	level   = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// loadDay selects date, or the latest date with data when none is given.
func loadDay(ctx context.Context, s *viewer.Session) error {
	day, ok, err := parseDay(dateFlag)
	if err != nil {
		return err
	}
	if !ok {
		_, err = s.LoadLatest(ctx)
		return err
	}
	return s.SelectDate(ctx, day)
}

// selectStep moves the slider when --step was given.
func selectStep(s *viewer.Session) error {
	if stepFlag < 0 {
		return nil
	}
	return s.SelectStepAt(stepFlag)
}

func addStepsCmd(rootCmd *cobra.Command) {
	stepsCmd := &cobra.Command{
		Use:   "steps",
		Short: "List the forecast steps of a date or run",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.session.Close()

			if err := loadDay(cmd.Context(), e.session); err != nil {
				return err
			}

			snap := e.session.Snapshot().Forecast
			cmd.Println(heading(fmt.Sprintf("%s, %s", snap.Index.Label(), snap.Mode)))
			if snap.BaseTime != nil {
				cmd.Println(fmt.Sprintf("Base time: %s", snap.BaseTime.Format(time.RFC3339)))
			}
			for i, step := range snap.Steps {
				line := fmt.Sprintf("%3d  %s", i, step.ForecastTime.Format(time.RFC3339))
				if snap.Selected != nil && snap.Selected.Equal(step.ForecastTime) {
					line += "  " + faint("(initial)")
				}
				cmd.Println(line)
			}
			return nil
		},
	}
	stepsCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Date (YYYY-MM-DD), latest if empty")
	rootCmd.AddCommand(stepsCmd)
}

func addOverlayCmd(rootCmd *cobra.Command) {
	overlayCmd := &cobra.Command{
		Use:   "overlay",
		Short: "Render the risk overlay of a viewport",
		Long: `Fetch the heatmap for a viewport and time step. An output ending in
.html gets a standalone Leaflet map; anything else gets the raw image.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, err := parseBounds(boundsFlag)
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.session.Close()

			if err := e.session.SetViewport(bounds.SouthWest, bounds.NorthEast); err != nil {
				return err
			}
			if err := loadDay(cmd.Context(), e.session); err != nil {
				return err
			}
			if err := selectStep(e.session); err != nil {
				return err
			}
			e.session.Wait()

			return writeOverlay(cmd, e.session, outputFlag)
		},
	}
	overlayCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Date (YYYY-MM-DD), latest if empty")
	overlayCmd.Flags().StringVarP(&boundsFlag, "bounds", "b", "35,-10,45,5", "Viewport as south,west,north,east")
	overlayCmd.Flags().IntVarP(&stepFlag, "step", "s", -1, "Step position, initial step if negative")
	overlayCmd.Flags().StringVarP(&outputFlag, "output", "o", "fireview.html", "Output file (.html or image)")
	rootCmd.AddCommand(overlayCmd)
}

// writeOverlay writes the displayed overlay as a map page or raw image.
func writeOverlay(cmd *cobra.Command, s *viewer.Session, path string) error {
	snap := s.Snapshot()
	if snap.Overlay == nil {
		if snap.OverlayError != "" {
			return fmt.Errorf("overlay unavailable: %s", snap.OverlayError)
		}
		return render.ErrNoOverlay
	}
	obj, ok := s.Store().Get(snap.Overlay.URL)
	if !ok {
		return render.ErrNoOverlay
	}

	if strings.EqualFold(filepath.Ext(path), ".html") {
		page, err := render.NewPage(snap, obj, time.Now())
		if err != nil {
			return err
		}
		if err := render.WritePage(page, path); err != nil {
			return err
		}
	} else if err := render.WriteImage(obj, path); err != nil {
		return err
	}

	cmd.Println(fmt.Sprintf("Overlay saved to %s", path))
	return nil
}

func addTooltipCmd(rootCmd *cobra.Command) {
	tooltipCmd := &cobra.Command{
		Use:   "tooltip LAT LON",
		Short: "Query the risk value at a point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			point, err := parsePoint(args[0], args[1])
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.session.Close()

			if err := loadDay(cmd.Context(), e.session); err != nil {
				return err
			}
			if err := selectStep(e.session); err != nil {
				return err
			}
			if err := e.session.OpenTooltip(point); err != nil {
				return err
			}
			e.session.Wait()

			p := e.session.Snapshot().Tooltip
			if p == nil {
				return fmt.Errorf("no value at %s", point)
			}
			cmd.Println(heading(fmt.Sprintf("%s at %s", p.Selection.Index.Label(), point)))
			cmd.Println(fmt.Sprintf("Forecast time: %s", p.Selection.ForecastTime.Format(time.RFC3339)))
			if p.Warning != "" {
				cmd.Println(warn(p.Warning))
				return nil
			}
			if p.Value != nil {
				value := fmt.Sprintf("%.4g", *p.Value)
				if p.Category != nil {
					value += " " + level(p.Category.Name)
				}
				cmd.Println(fmt.Sprintf("Value: %s", value))
			} else {
				cmd.Println(faint("No data"))
			}
			if p.Cell != nil {
				cmd.Println(faint(fmt.Sprintf("Grid cell %d,%d (%.5f, %.5f), %.2f km away",
					p.Cell.XIndex, p.Cell.YIndex, p.Cell.Lat, p.Cell.Lon, p.Cell.DistanceKm)))
			}
			if p.LocalTime != nil {
				cmd.Println(fmt.Sprintf("Local time: %s (%s)", p.LocalTime.Format("2006-01-02 15:04"), p.Timezone))
			}
			return nil
		},
	}
	tooltipCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Date (YYYY-MM-DD), latest if empty")
	tooltipCmd.Flags().IntVarP(&stepFlag, "step", "s", -1, "Step position, initial step if negative")
	rootCmd.AddCommand(tooltipCmd)
}

func addAnalyticsCmd(rootCmd *cobra.Command) {
	var area, start, end, thresholds string

	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarise risk over an area and date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.session.Close()

			q := analytics.ExceedanceQuery{}
			q.Index = e.session.Snapshot().Forecast.Index
			if area != "" {
				b, err := parseBounds(area)
				if err != nil {
					return err
				}
				q.BBox = geo.BBoxFromBounds(b).String()
			}
			if q.Start, _, err = parseDay(start); err != nil {
				return err
			}
			if q.End, _, err = parseDay(end); err != nil {
				return err
			}
			if q.Thresholds, err = parseThresholds(thresholds); err != nil {
				return err
			}

			sum, err := analytics.NewService(e.client, e.logger).Summary(cmd.Context(), q)
			if err != nil {
				return err
			}
			printSummary(cmd, sum)
			return nil
		},
	}
	analyticsCmd.Flags().StringVarP(&area, "bounds", "b", "", "Area as south,west,north,east, whole domain if empty")
	analyticsCmd.Flags().StringVar(&start, "start", "", "First base date (YYYY-MM-DD)")
	analyticsCmd.Flags().StringVar(&end, "end", "", "Last base date (YYYY-MM-DD)")
	analyticsCmd.Flags().StringVar(&thresholds, "thresholds", "0.01,0.05", "Comma separated exceedance thresholds")
	_ = analyticsCmd.MarkFlagRequired("start")
	_ = analyticsCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(analyticsCmd)
}

func printSummary(cmd *cobra.Command, sum *analytics.Summary) {
	title := sum.Index.Label()
	if sum.Display != "" {
		title += " " + faint(sum.Display)
	}
	cmd.Println(heading(title))

	if sum.PeakMean != nil && sum.PeakMean.Mean != nil {
		cmd.Println(fmt.Sprintf("Peak mean: %.4g on %s", *sum.PeakMean.Mean, sum.PeakMean.BaseTime))
	}
	cmd.Println(fmt.Sprintf("Expected fires: %.1f", sum.TotalExpected))

	if sum.TimeSeries != nil {
		cmd.Println(heading("Time series"))
		for _, p := range sum.TimeSeries.Series {
			cmd.Println(fmt.Sprintf("  %s  mean %s  median %s", p.BaseTime, optional(p.Mean), optional(p.Median)))
		}
	}
}

func optional(v *float64) string {
	if v == nil {
		return faint("n/a")
	}
	return fmt.Sprintf("%.4g", *v)
}

func parsePoint(lat, lon string) (types.Coords, error) {
	b, err := parseBounds(lat + "," + lon + "," + lat + "," + lon)
	if err != nil {
		return types.Coords{}, fmt.Errorf("invalid point %s,%s", lat, lon)
	}
	return b.SouthWest, nil
}
