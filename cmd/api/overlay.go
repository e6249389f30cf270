package main

import (
	"context"

	"fireview/internal/overlay"
	"fireview/internal/palette"

	"github.com/danielgtaylor/huma/v2"
)

type ObjectInput struct {
	ID string `path:"id" doc:"Object id from the overlay url"`
}

type ObjectOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// handleGetObject serves the bytes behind a live overlay URL. Revoked URLs
// are gone.
func (app *App) handleGetObject(ctx context.Context, input *ObjectInput) (*ObjectOutput, error) {
	obj, ok := app.session.Store().Get("blob:" + input.ID)
	if !ok {
		return nil, huma.Error404NotFound("object url revoked or unknown")
	}
	return &ObjectOutput{
		ContentType:  obj.ContentType,
		CacheControl: "no-store",
		Body:         obj.Blob,
	}, nil
}

type OverlayOutput struct {
	Body overlay.Overlay
}

func (app *App) handleGetOverlay(ctx context.Context, input *struct{}) (*OverlayOutput, error) {
	snap := app.session.Snapshot()
	if snap.Overlay == nil {
		msg := "no overlay displayed"
		if snap.OverlayError != "" {
			msg = snap.OverlayError
		}
		return nil, huma.Error404NotFound(msg)
	}
	return &OverlayOutput{Body: *snap.Overlay}, nil
}

type LegendOutput struct {
	Body palette.Legend
}

func (app *App) handleGetLegend(ctx context.Context, input *struct{}) (*LegendOutput, error) {
	snap := app.session.Snapshot()
	if snap.Overlay == nil {
		return nil, huma.Error404NotFound("no overlay displayed")
	}
	return &LegendOutput{Body: snap.Overlay.Legend}, nil
}
