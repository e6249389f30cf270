package main

import (
	"context"
)

// PingOutput represents the response for the ping endpoint
type PingOutput struct {
	Body struct {
		Message string `json:"message" example:"pong" doc:"Response message"`
		State   string `json:"state" example:"ready" doc:"Step list state of the session"`
	}
}

// handlePing is a health check endpoint; it also reports whether the
// session has a step list loaded.
func (app *App) handlePing(ctx context.Context, input *struct{}) (*PingOutput, error) {
	resp := &PingOutput{}
	resp.Body.Message = "pong"
	resp.Body.State = app.session.Snapshot().Forecast.State.String()
	return resp, nil
}
