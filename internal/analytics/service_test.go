package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"fireview/internal/providers/firerisk"
	"fireview/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

type mockFetcher struct {
	mu      sync.Mutex
	calls   []string
	filters []firerisk.AggregateFilter
	failOn  string
	block   bool
}

func (m *mockFetcher) record(name string, filter firerisk.AggregateFilter) error {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.filters = append(m.filters, filter)
	m.mu.Unlock()
	if m.failOn == name {
		return &firerisk.APIError{Status: 500, Message: "API 500: " + name}
	}
	return nil
}

func (m *mockFetcher) wait(ctx context.Context) error {
	if !m.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockFetcher) GetTimeSeries(ctx context.Context, index types.Index, filter firerisk.AggregateFilter) (*firerisk.TimeSeriesAPIResponse, error) {
	if err := m.record("time_series", filter); err != nil {
		return nil, err
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &firerisk.TimeSeriesAPIResponse{
		Index:    string(index),
		BBox4326: []float64{-10, 35, 5, 45},
		Series: []firerisk.TimeSeriesPoint{
			{BaseTime: "2025-07-01T00:00:00Z", Mean: ptr(0.2)},
			{BaseTime: "2025-07-02T00:00:00Z", Mean: nil},
			{BaseTime: "2025-07-03T00:00:00Z", Mean: ptr(0.7)},
			{BaseTime: "2025-07-04T00:00:00Z", Mean: ptr(0.4)},
		},
	}, nil
}

func (m *mockFetcher) GetExpectedFires(ctx context.Context, index types.Index, filter firerisk.AggregateFilter) (*firerisk.ExpectedFiresAPIResponse, error) {
	if err := m.record("expected_fires", filter); err != nil {
		return nil, err
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &firerisk.ExpectedFiresAPIResponse{
		Index: string(index),
		Series: []firerisk.ExpectedFiresPoint{
			{Date: "2025-07-01", ExpectedFires: 1.5},
			{Date: "2025-07-02", ExpectedFires: 2.5},
		},
	}, nil
}

func (m *mockFetcher) GetExceedanceFrequency(ctx context.Context, index types.Index, filter firerisk.AggregateFilter, thresholds []float64) (*firerisk.ExceedanceAPIResponse, error) {
	if err := m.record("exceedance_frequency", filter); err != nil {
		return nil, err
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &firerisk.ExceedanceAPIResponse{Index: string(index), Thresholds: thresholds}, nil
}

func (m *mockFetcher) GetDifferenceMap(ctx context.Context, index types.Index, baseStart, baseEnd time.Time, bbox string) (*firerisk.DifferenceMapAPIResponse, error) {
	if err := m.record("difference_map", firerisk.AggregateFilter{BBox: bbox, Start: baseStart, End: baseEnd}); err != nil {
		return nil, err
	}
	return &firerisk.DifferenceMapAPIResponse{
		Index:    string(index),
		BBox4326: []float64{-10, 35, 5, 45},
		Delta: [][]*float64{
			{ptr(-0.5), nil},
			{ptr(0.25), ptr(1)},
		},
	}, nil
}

func (m *mockFetcher) GetForecastHorizon(ctx context.Context, index types.Index, bbox string) (*firerisk.ForecastHorizonAPIResponse, error) {
	if err := m.record("forecast_horizon", firerisk.AggregateFilter{BBox: bbox}); err != nil {
		return nil, err
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &firerisk.ForecastHorizonAPIResponse{Index: string(index)}, nil
}

var (
	july1  = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	july10 = time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
)

func TestValidation(t *testing.T) {
	svc := NewService(&mockFetcher{}, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() error
		wantErr bool
	}{
		{"time series without range", func() error {
			_, err := svc.TimeSeries(ctx, RangeQuery{Index: types.IndexPOF})
			return err
		}, true},
		{"time series with inverted range", func() error {
			_, err := svc.TimeSeries(ctx, RangeQuery{Index: types.IndexPOF, Start: july10, End: july1})
			return err
		}, true},
		{"time series with unknown index", func() error {
			_, err := svc.TimeSeries(ctx, RangeQuery{Index: "fwi", Start: july1, End: july10})
			return err
		}, true},
		{"time series ok", func() error {
			_, err := svc.TimeSeries(ctx, RangeQuery{Index: types.IndexPOF, Start: july1, End: july10})
			return err
		}, false},
		{"single day range ok", func() error {
			_, err := svc.ExpectedFires(ctx, RangeQuery{Index: types.IndexFOPI, Start: july1, End: july1})
			return err
		}, false},
		{"exceedance without thresholds", func() error {
			_, err := svc.Exceedance(ctx, ExceedanceQuery{RangeQuery: RangeQuery{Index: types.IndexPOF, Start: july1, End: july10}})
			return err
		}, true},
		{"exceedance with negative threshold", func() error {
			_, err := svc.Exceedance(ctx, ExceedanceQuery{RangeQuery: RangeQuery{Index: types.IndexPOF, Start: july1, End: july10}, Thresholds: []float64{-1}})
			return err
		}, true},
		{"exceedance ok", func() error {
			_, err := svc.Exceedance(ctx, ExceedanceQuery{RangeQuery: RangeQuery{Index: types.IndexPOF, Start: july1, End: july10}, Thresholds: []float64{0.1, 0.5}})
			return err
		}, false},
		{"difference map missing end", func() error {
			_, err := svc.DifferenceMap(ctx, DifferenceQuery{Index: types.IndexPOF, BaseStart: july1})
			return err
		}, true},
		{"horizon without range ok", func() error {
			_, err := svc.Horizon(ctx, HorizonQuery{Index: types.IndexFOPI})
			return err
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidationFailsBeforeFetching(t *testing.T) {
	f := &mockFetcher{}
	svc := NewService(f, discardLogger())

	_, _ = svc.Summary(context.Background(), ExceedanceQuery{})
	if len(f.calls) != 0 {
		t.Errorf("fetched %v for an invalid query", f.calls)
	}
}

func TestSummary(t *testing.T) {
	f := &mockFetcher{}
	svc := NewService(f, discardLogger())

	sum, err := svc.Summary(context.Background(), ExceedanceQuery{
		RangeQuery: RangeQuery{Index: types.IndexPOF, BBox: "1,2,3,4", Start: july1, End: july10},
		Thresholds: []float64{0.1},
	})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if len(f.calls) != 4 {
		t.Errorf("calls = %v, want 4", f.calls)
	}
	if sum.PeakMean == nil || sum.PeakMean.BaseTime != "2025-07-03T00:00:00Z" {
		t.Errorf("PeakMean = %+v", sum.PeakMean)
	}
	if sum.TotalExpected != 4 {
		t.Errorf("TotalExpected = %v, want 4", sum.TotalExpected)
	}
	if sum.Display != "[-10.0000, 35.0000, 5.0000, 45.0000]" {
		t.Errorf("Display = %q", sum.Display)
	}
	if sum.Exceedance == nil || sum.Horizon == nil || sum.ExpectedFires == nil {
		t.Error("summary is missing a section")
	}
}

func TestSummary_FirstErrorCancelsRest(t *testing.T) {
	f := &mockFetcher{failOn: "expected_fires", block: true}
	svc := NewService(f, discardLogger())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Summary(context.Background(), ExceedanceQuery{
			RangeQuery: RangeQuery{Index: types.IndexPOF, Start: july1, End: july10},
			Thresholds: []float64{0.1},
		})
		done <- err
	}()

	select {
	case err := <-done:
		var apiErr *firerisk.APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "API 500: expected_fires" {
			t.Errorf("err = %v, want the expected fires failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("summary did not cancel the remaining requests")
	}
}

func TestDifferenceMapStats(t *testing.T) {
	svc := NewService(&mockFetcher{}, discardLogger())

	dm, err := svc.DifferenceMap(context.Background(), DifferenceQuery{
		Index: types.IndexFOPI, BaseStart: july1, BaseEnd: july10, BBox: "1,2,3,4",
	})
	if err != nil {
		t.Fatalf("DifferenceMap: %v", err)
	}
	want := DifferenceStats{Cells: 3, Min: -0.5, Max: 1, Mean: 0.25}
	if dm.Stats != want {
		t.Errorf("Stats = %+v, want %+v", dm.Stats, want)
	}
	if dm.Display != "[-10.0000, 35.0000, 5.0000, 45.0000]" {
		t.Errorf("Display = %q", dm.Display)
	}
	if got := differenceStats(nil); got != (DifferenceStats{}) {
		t.Errorf("empty stats = %+v", got)
	}
}
