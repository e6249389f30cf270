package main

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerRoutes sets up all API endpoints
func (app *App) registerRoutes() {
	// Health check endpoint
	huma.Register(app.api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/ping",
		Summary:     "Ping health check",
		Description: "Check if the API is running",
		Tags:        []string{"health"},
	}, app.handlePing)

	// Session state and triggers
	huma.Register(app.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/session",
		Summary:     "Get view state",
		Description: "Steps, selection, overlay, errors and the open tooltip",
		Tags:        []string{"session"},
	}, app.handleGetSession)

	huma.Register(app.api, huma.Operation{
		OperationID: "set-viewport",
		Method:      http.MethodPut,
		Path:        "/session/viewport",
		Summary:     "Set the settled map viewport",
		Description: "Fetches a new overlay for the viewport, cancelling any overlay request in flight",
		Tags:        []string{"session"},
	}, app.handleSetViewport)

	huma.Register(app.api, huma.Operation{
		OperationID: "set-index",
		Method:      http.MethodPut,
		Path:        "/session/index",
		Summary:     "Switch fire-risk index",
		Tags:        []string{"session"},
	}, app.handleSetIndex)

	huma.Register(app.api, huma.Operation{
		OperationID: "set-mode",
		Method:      http.MethodPut,
		Path:        "/session/mode",
		Summary:     "Switch between by_date and by_forecast",
		Tags:        []string{"session"},
	}, app.handleSetMode)

	huma.Register(app.api, huma.Operation{
		OperationID: "select-date",
		Method:      http.MethodPut,
		Path:        "/session/date",
		Summary:     "Pick a calendar date or forecast run",
		Tags:        []string{"session"},
	}, app.handleSelectDate)

	huma.Register(app.api, huma.Operation{
		OperationID: "load-latest",
		Method:      http.MethodPost,
		Path:        "/session/latest",
		Summary:     "Pick the latest date with data",
		Tags:        []string{"session"},
	}, app.handleLoadLatest)

	huma.Register(app.api, huma.Operation{
		OperationID: "select-step",
		Method:      http.MethodPut,
		Path:        "/session/step",
		Summary:     "Move the time slider",
		Tags:        []string{"session"},
	}, app.handleSelectStep)

	huma.Register(app.api, huma.Operation{
		OperationID: "open-tooltip",
		Method:      http.MethodPut,
		Path:        "/session/tooltip",
		Summary:     "Query the value at a point",
		Tags:        []string{"session"},
	}, app.handleOpenTooltip)

	huma.Register(app.api, huma.Operation{
		OperationID: "close-tooltip",
		Method:      http.MethodDelete,
		Path:        "/session/tooltip",
		Summary:     "Dismiss the point query popup",
		Tags:        []string{"session"},
	}, app.handleCloseTooltip)

	huma.Register(app.api, huma.Operation{
		OperationID: "available-dates",
		Method:      http.MethodGet,
		Path:        "/dates",
		Summary:     "List dates with data for the current index",
		Tags:        []string{"session"},
	}, app.handleAvailableDates)

	// Overlay
	huma.Register(app.api, huma.Operation{
		OperationID: "get-overlay",
		Method:      http.MethodGet,
		Path:        "/overlay",
		Summary:     "Get the displayed overlay",
		Tags:        []string{"overlay"},
	}, app.handleGetOverlay)

	huma.Register(app.api, huma.Operation{
		OperationID: "get-legend",
		Method:      http.MethodGet,
		Path:        "/overlay/legend",
		Summary:     "Get the legend of the displayed overlay",
		Tags:        []string{"overlay"},
	}, app.handleGetLegend)

	huma.Register(app.api, huma.Operation{
		OperationID: "get-object",
		Method:      http.MethodGet,
		Path:        "/objects/{id}",
		Summary:     "Get overlay image bytes",
		Description: "Only the currently displayed overlay URL resolves",
		Tags:        []string{"overlay"},
	}, app.handleGetObject)

	// Analytics
	huma.Register(app.api, huma.Operation{
		OperationID: "time-series",
		Method:      http.MethodGet,
		Path:        "/analytics/time-series",
		Summary:     "Mean and median by base time",
		Tags:        []string{"analytics"},
	}, app.handleTimeSeries)

	huma.Register(app.api, huma.Operation{
		OperationID: "expected-fires",
		Method:      http.MethodGet,
		Path:        "/analytics/expected-fires",
		Summary:     "Expected fire count by date",
		Tags:        []string{"analytics"},
	}, app.handleExpectedFires)

	huma.Register(app.api, huma.Operation{
		OperationID: "exceedance-frequency",
		Method:      http.MethodGet,
		Path:        "/analytics/exceedance",
		Summary:     "Threshold exceedance frequency",
		Tags:        []string{"analytics"},
	}, app.handleExceedance)

	huma.Register(app.api, huma.Operation{
		OperationID: "difference-map",
		Method:      http.MethodGet,
		Path:        "/analytics/difference-map",
		Summary:     "Gridded change between two runs",
		Tags:        []string{"analytics"},
	}, app.handleDifferenceMap)

	huma.Register(app.api, huma.Operation{
		OperationID: "forecast-horizon",
		Method:      http.MethodGet,
		Path:        "/analytics/horizon",
		Summary:     "Mean value by lead time",
		Tags:        []string{"analytics"},
	}, app.handleHorizon)

	huma.Register(app.api, huma.Operation{
		OperationID: "analytics-summary",
		Method:      http.MethodGet,
		Path:        "/analytics/summary",
		Summary:     "Time series, expected fires, exceedance and horizon in one call",
		Tags:        []string{"analytics"},
	}, app.handleSummary)
}
