package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fireview/internal/analytics"
	"fireview/internal/providers/firerisk"
	"fireview/internal/types"
)

// RangeParams are the query parameters shared by the aggregate endpoints.
type RangeParams struct {
	Index string `query:"index" enum:"pof,fopi" default:"pof"`
	BBox  string `query:"bbox" doc:"EPSG:3857 minX,minY,maxX,maxY"`
	Start string `query:"start" doc:"First base date" example:"2025-07-01"`
	End   string `query:"end" doc:"Last base date" example:"2025-07-10"`
}

func (p RangeParams) query() (analytics.RangeQuery, error) {
	index, err := types.ParseIndex(p.Index)
	if err != nil {
		return analytics.RangeQuery{}, err
	}
	q := analytics.RangeQuery{Index: index, BBox: p.BBox}
	if p.Start != "" {
		if q.Start, err = parseDate(p.Start); err != nil {
			return analytics.RangeQuery{}, err
		}
	}
	if p.End != "" {
		if q.End, err = parseDate(p.End); err != nil {
			return analytics.RangeQuery{}, err
		}
	}
	return q, nil
}

type ExceedanceParams struct {
	RangeParams
	Thresholds string `query:"thresholds" doc:"Comma separated thresholds" example:"0.1,0.5"`
}

func (p ExceedanceParams) query() (analytics.ExceedanceQuery, error) {
	rq, err := p.RangeParams.query()
	if err != nil {
		return analytics.ExceedanceQuery{}, err
	}
	q := analytics.ExceedanceQuery{RangeQuery: rq}
	for _, s := range strings.Split(p.Thresholds, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return analytics.ExceedanceQuery{}, errBadThreshold(s)
		}
		q.Thresholds = append(q.Thresholds, v)
	}
	return q, nil
}

func errBadThreshold(s string) error {
	return fmt.Errorf("%w: threshold %q is not a number", analytics.ErrValidation, s)
}

type TimeSeriesOutput struct {
	Body *firerisk.TimeSeriesAPIResponse
}

func (app *App) handleTimeSeries(ctx context.Context, input *RangeParams) (*TimeSeriesOutput, error) {
	q, err := input.query()
	if err != nil {
		return nil, app.toHTTPError("get time series", err)
	}
	resp, err := app.analytics.TimeSeries(ctx, q)
	if err != nil {
		return nil, app.toHTTPError("get time series", err)
	}
	return &TimeSeriesOutput{Body: resp}, nil
}

type ExpectedFiresOutput struct {
	Body *firerisk.ExpectedFiresAPIResponse
}

func (app *App) handleExpectedFires(ctx context.Context, input *RangeParams) (*ExpectedFiresOutput, error) {
	q, err := input.query()
	if err != nil {
		return nil, app.toHTTPError("get expected fires", err)
	}
	resp, err := app.analytics.ExpectedFires(ctx, q)
	if err != nil {
		return nil, app.toHTTPError("get expected fires", err)
	}
	return &ExpectedFiresOutput{Body: resp}, nil
}

type ExceedanceOutput struct {
	Body *firerisk.ExceedanceAPIResponse
}

func (app *App) handleExceedance(ctx context.Context, input *ExceedanceParams) (*ExceedanceOutput, error) {
	q, err := input.query()
	if err != nil {
		return nil, app.toHTTPError("get exceedance frequency", err)
	}
	resp, err := app.analytics.Exceedance(ctx, q)
	if err != nil {
		return nil, app.toHTTPError("get exceedance frequency", err)
	}
	return &ExceedanceOutput{Body: resp}, nil
}

type DifferenceParams struct {
	Index     string `query:"index" enum:"pof,fopi" default:"pof"`
	BBox      string `query:"bbox" doc:"EPSG:3857 minX,minY,maxX,maxY"`
	BaseStart string `query:"base_time_start" example:"2025-07-01"`
	BaseEnd   string `query:"base_time_end" example:"2025-07-10"`
}

type DifferenceOutput struct {
	Body *analytics.DifferenceMap
}

func (app *App) handleDifferenceMap(ctx context.Context, input *DifferenceParams) (*DifferenceOutput, error) {
	index, err := types.ParseIndex(input.Index)
	if err != nil {
		return nil, app.toHTTPError("get difference map", err)
	}
	q := analytics.DifferenceQuery{Index: index, BBox: input.BBox}
	for _, p := range []struct {
		raw string
		dst *time.Time
	}{{input.BaseStart, &q.BaseStart}, {input.BaseEnd, &q.BaseEnd}} {
		if p.raw == "" {
			continue
		}
		if *p.dst, err = parseDate(p.raw); err != nil {
			return nil, app.toHTTPError("get difference map", err)
		}
	}
	resp, err := app.analytics.DifferenceMap(ctx, q)
	if err != nil {
		return nil, app.toHTTPError("get difference map", err)
	}
	return &DifferenceOutput{Body: resp}, nil
}

type HorizonParams struct {
	Index string `query:"index" enum:"pof,fopi" default:"pof"`
	BBox  string `query:"bbox" doc:"EPSG:3857 minX,minY,maxX,maxY"`
}

type HorizonOutput struct {
	Body *firerisk.ForecastHorizonAPIResponse
}

func (app *App) handleHorizon(ctx context.Context, input *HorizonParams) (*HorizonOutput, error) {
	index, err := types.ParseIndex(input.Index)
	if err != nil {
		return nil, app.toHTTPError("get forecast horizon", err)
	}
	resp, err := app.analytics.Horizon(ctx, analytics.HorizonQuery{Index: index, BBox: input.BBox})
	if err != nil {
		return nil, app.toHTTPError("get forecast horizon", err)
	}
	return &HorizonOutput{Body: resp}, nil
}

type SummaryOutput struct {
	Body *analytics.Summary
}

func (app *App) handleSummary(ctx context.Context, input *ExceedanceParams) (*SummaryOutput, error) {
	q, err := input.query()
	if err != nil {
		return nil, app.toHTTPError("build analytics summary", err)
	}
	resp, err := app.analytics.Summary(ctx, q)
	if err != nil {
		return nil, app.toHTTPError("build analytics summary", err)
	}
	return &SummaryOutput{Body: resp}, nil
}
