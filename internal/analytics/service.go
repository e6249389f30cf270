// Package analytics validates and runs the aggregate statistics queries.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"fireview/internal/providers/firerisk"
	"fireview/internal/types"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

var ErrValidation = errors.New("invalid analytics query")

type Fetcher interface {
	GetTimeSeries(ctx context.Context, index types.Index, filter firerisk.AggregateFilter) (*firerisk.TimeSeriesAPIResponse, error)
	GetExpectedFires(ctx context.Context, index types.Index, filter firerisk.AggregateFilter) (*firerisk.ExpectedFiresAPIResponse, error)
	GetExceedanceFrequency(ctx context.Context, index types.Index, filter firerisk.AggregateFilter, thresholds []float64) (*firerisk.ExceedanceAPIResponse, error)
	GetDifferenceMap(ctx context.Context, index types.Index, baseStart, baseEnd time.Time, bbox string) (*firerisk.DifferenceMapAPIResponse, error)
	GetForecastHorizon(ctx context.Context, index types.Index, bbox string) (*firerisk.ForecastHorizonAPIResponse, error)
}

type Service interface {
	TimeSeries(ctx context.Context, q RangeQuery) (*firerisk.TimeSeriesAPIResponse, error)
	ExpectedFires(ctx context.Context, q RangeQuery) (*firerisk.ExpectedFiresAPIResponse, error)
	Exceedance(ctx context.Context, q ExceedanceQuery) (*firerisk.ExceedanceAPIResponse, error)
	DifferenceMap(ctx context.Context, q DifferenceQuery) (*DifferenceMap, error)
	Horizon(ctx context.Context, q HorizonQuery) (*firerisk.ForecastHorizonAPIResponse, error)
	Summary(ctx context.Context, q ExceedanceQuery) (*Summary, error)
}

type service struct {
	fetcher  Fetcher
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(fetcher Fetcher, logger *slog.Logger) Service {
	return &service{
		fetcher:  fetcher,
		validate: validator.New(),
		logger:   logger.With("component", "analytics"),
	}
}

func (s *service) check(q any) error {
	if err := s.validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (q RangeQuery) filter() firerisk.AggregateFilter {
	return firerisk.AggregateFilter{BBox: q.BBox, Start: q.Start, End: q.End}
}

func (s *service) TimeSeries(ctx context.Context, q RangeQuery) (*firerisk.TimeSeriesAPIResponse, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	return s.fetcher.GetTimeSeries(ctx, q.Index, q.filter())
}

func (s *service) ExpectedFires(ctx context.Context, q RangeQuery) (*firerisk.ExpectedFiresAPIResponse, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	return s.fetcher.GetExpectedFires(ctx, q.Index, q.filter())
}

func (s *service) Exceedance(ctx context.Context, q ExceedanceQuery) (*firerisk.ExceedanceAPIResponse, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	return s.fetcher.GetExceedanceFrequency(ctx, q.Index, q.filter(), q.Thresholds)
}

func (s *service) DifferenceMap(ctx context.Context, q DifferenceQuery) (*DifferenceMap, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	resp, err := s.fetcher.GetDifferenceMap(ctx, q.Index, q.BaseStart, q.BaseEnd, q.BBox)
	if err != nil {
		return nil, err
	}
	return &DifferenceMap{
		Map:     resp,
		Stats:   differenceStats(resp.Delta),
		Display: displayBBox(resp.BBox4326),
	}, nil
}

func (s *service) Horizon(ctx context.Context, q HorizonQuery) (*firerisk.ForecastHorizonAPIResponse, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	return s.fetcher.GetForecastHorizon(ctx, q.Index, q.BBox)
}

// Summary fetches the time series, expected fires, exceedance and forecast
// horizon of one area concurrently. The first failure cancels the rest.
func (s *service) Summary(ctx context.Context, q ExceedanceQuery) (*Summary, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}

	sum := &Summary{Index: q.Index}
	filter := q.filter()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := s.fetcher.GetTimeSeries(ctx, q.Index, filter)
		if err != nil {
			return fmt.Errorf("time series: %w", err)
		}
		sum.TimeSeries = resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.fetcher.GetExpectedFires(ctx, q.Index, filter)
		if err != nil {
			return fmt.Errorf("expected fires: %w", err)
		}
		sum.ExpectedFires = resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.fetcher.GetExceedanceFrequency(ctx, q.Index, filter, q.Thresholds)
		if err != nil {
			return fmt.Errorf("exceedance frequency: %w", err)
		}
		sum.Exceedance = resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.fetcher.GetForecastHorizon(ctx, q.Index, q.BBox)
		if err != nil {
			return fmt.Errorf("forecast horizon: %w", err)
		}
		sum.Horizon = resp
		return nil
	})

	if err := g.Wait(); err != nil {
		if !firerisk.IsAbort(err) {
			s.logger.Error("failed to build analytics summary", "index", q.Index, "error", err)
		}
		return nil, err
	}

	for i, p := range sum.TimeSeries.Series {
		if p.Mean == nil {
			continue
		}
		if sum.PeakMean == nil || *p.Mean > *sum.PeakMean.Mean {
			sum.PeakMean = &sum.TimeSeries.Series[i]
		}
	}
	for _, p := range sum.ExpectedFires.Series {
		sum.TotalExpected += p.ExpectedFires
	}
	sum.Display = displayBBox(sum.TimeSeries.BBox4326)

	s.logger.Debug("analytics summary built",
		"index", q.Index,
		"series", len(sum.TimeSeries.Series),
		"total_expected", sum.TotalExpected,
	)

	return sum, nil
}

func differenceStats(delta [][]*float64) DifferenceStats {
	st := DifferenceStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var total float64
	for _, row := range delta {
		for _, v := range row {
			if v == nil || math.IsNaN(*v) {
				continue
			}
			st.Cells++
			total += *v
			st.Min = math.Min(st.Min, *v)
			st.Max = math.Max(st.Max, *v)
		}
	}
	if st.Cells == 0 {
		return DifferenceStats{}
	}
	st.Mean = total / float64(st.Cells)
	return st
}
