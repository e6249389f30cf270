package main

import (
	"context"
	"time"

	"fireview/internal/types"
	"fireview/internal/viewer"
)

type SessionOutput struct {
	Body viewer.Snapshot
}

func (app *App) snapshot() *SessionOutput {
	return &SessionOutput{Body: app.session.Snapshot()}
}

func (app *App) handleGetSession(ctx context.Context, input *struct{}) (*SessionOutput, error) {
	return app.snapshot(), nil
}

type ViewportInput struct {
	Body struct {
		SouthWest types.Coords `json:"south_west" doc:"South-west corner of the settled viewport"`
		NorthEast types.Coords `json:"north_east" doc:"North-east corner of the settled viewport"`
	}
}

func (app *App) handleSetViewport(ctx context.Context, input *ViewportInput) (*SessionOutput, error) {
	if err := app.session.SetViewport(input.Body.SouthWest, input.Body.NorthEast); err != nil {
		return nil, app.toHTTPError("set viewport", err)
	}
	return app.snapshot(), nil
}

type IndexInput struct {
	Body struct {
		Index string `json:"index" enum:"pof,fopi" example:"pof"`
	}
}

func (app *App) handleSetIndex(ctx context.Context, input *IndexInput) (*SessionOutput, error) {
	index, err := types.ParseIndex(input.Body.Index)
	if err != nil {
		return nil, app.toHTTPError("set index", err)
	}
	if err := app.session.SetIndex(ctx, index); err != nil {
		return nil, app.toHTTPError("set index", err)
	}
	return app.snapshot(), nil
}

type ModeInput struct {
	Body struct {
		Mode string `json:"mode" enum:"by_date,by_forecast" example:"by_date"`
	}
}

func (app *App) handleSetMode(ctx context.Context, input *ModeInput) (*SessionOutput, error) {
	mode, err := types.ParseMode(input.Body.Mode)
	if err != nil {
		return nil, app.toHTTPError("set mode", err)
	}
	if err := app.session.SetMode(ctx, mode); err != nil {
		return nil, app.toHTTPError("set mode", err)
	}
	return app.snapshot(), nil
}

type DateInput struct {
	Body struct {
		Date string `json:"date" doc:"Calendar date (by_date) or run date (by_forecast)" example:"2025-07-20"`
	}
}

func (app *App) handleSelectDate(ctx context.Context, input *DateInput) (*SessionOutput, error) {
	date, err := parseDate(input.Body.Date)
	if err != nil {
		return nil, app.toHTTPError("select date", err)
	}
	if err := app.session.SelectDate(ctx, date); err != nil {
		return nil, app.toHTTPError("select date", err)
	}
	return app.snapshot(), nil
}

func (app *App) handleLoadLatest(ctx context.Context, input *struct{}) (*SessionOutput, error) {
	if _, err := app.session.LoadLatest(ctx); err != nil {
		return nil, app.toHTTPError("load latest date", err)
	}
	return app.snapshot(), nil
}

type StepInput struct {
	Body struct {
		ForecastTime *time.Time `json:"forecast_time,omitempty" doc:"Forecast time from the loaded step list"`
		Position     *int       `json:"position,omitempty" doc:"Slider position in the step list" minimum:"0"`
	}
}

func (app *App) handleSelectStep(ctx context.Context, input *StepInput) (*SessionOutput, error) {
	var err error
	switch {
	case input.Body.ForecastTime != nil:
		err = app.session.SelectStep(*input.Body.ForecastTime)
	case input.Body.Position != nil:
		err = app.session.SelectStepAt(*input.Body.Position)
	default:
		return nil, app.toHTTPError("select step", errMissingStep)
	}
	if err != nil {
		return nil, app.toHTTPError("select step", err)
	}
	return app.snapshot(), nil
}

type TooltipInput struct {
	Body types.Coords
}

func (app *App) handleOpenTooltip(ctx context.Context, input *TooltipInput) (*SessionOutput, error) {
	if err := app.session.OpenTooltip(input.Body); err != nil {
		return nil, app.toHTTPError("open tooltip", err)
	}
	return app.snapshot(), nil
}

func (app *App) handleCloseTooltip(ctx context.Context, input *struct{}) (*SessionOutput, error) {
	app.session.CloseTooltip()
	return app.snapshot(), nil
}

type DatesOutput struct {
	Body struct {
		Dates []time.Time `json:"dates"`
	}
}

func (app *App) handleAvailableDates(ctx context.Context, input *struct{}) (*DatesOutput, error) {
	dates, err := app.session.AvailableDates(ctx)
	if err != nil {
		return nil, app.toHTTPError("list available dates", err)
	}
	resp := &DatesOutput{}
	resp.Body.Dates = dates
	return resp, nil
}
