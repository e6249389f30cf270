package main

import (
	"errors"
	"time"

	"fireview/internal/analytics"
	"fireview/internal/forecast"
	"fireview/internal/palette"
	"fireview/internal/providers/firerisk"
	"fireview/internal/tooltip"
	"fireview/internal/types"
	"fireview/internal/viewer"

	"github.com/danielgtaylor/huma/v2"
)

// toHTTPError maps domain errors onto API responses.
func (app *App) toHTTPError(op string, err error) error {
	var apiErr *firerisk.APIError
	switch {
	case errors.Is(err, types.ErrUnknownIndex),
		errors.Is(err, types.ErrUnknownMode),
		errors.Is(err, analytics.ErrValidation),
		errors.Is(err, palette.ErrBadThresholds),
		errors.Is(err, errBadDate),
		errors.Is(err, errMissingStep):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, forecast.ErrNotReady),
		errors.Is(err, forecast.ErrUnknownStep),
		errors.Is(err, forecast.ErrNoAnchor),
		errors.Is(err, tooltip.ErrNotOpen):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, viewer.ErrClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.As(err, &apiErr):
		return huma.Error502BadGateway(apiErr.Message)
	case firerisk.IsAbort(err):
		return huma.Error503ServiceUnavailable("request cancelled")
	}

	app.logger.Error("request failed", "op", op, "error", err)
	return huma.Error500InternalServerError("failed to " + op)
}

var (
	errBadDate     = errors.New("invalid date")
	errMissingStep = errors.New("forecast_time or position is required")
)

// parseDate accepts a calendar date or an RFC3339 instant.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Join(errBadDate, errors.New("expected YYYY-MM-DD or RFC3339, got "+s))
}
