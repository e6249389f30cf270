// Package render writes a self-contained HTML map of a viewer snapshot.
package render

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"fireview/internal/overlay"
	"fireview/internal/tooltip"
	"fireview/internal/viewer"

	"github.com/natefinch/atomic"
)

var ErrNoOverlay = errors.New("no overlay to render")

// Page is the data behind the map template.
type Page struct {
	Title        string
	Index        string
	Mode         string
	BaseTime     string
	ForecastTime string
	Overlay      overlay.Overlay
	ImageURL     template.URL
	BoundsJSON   template.JS
	ViewportJSON template.JS
	Tooltip      string
	TooltipJSON  template.JS
	Errors       []string
	GeneratedAt  string
}

// NewPage builds a page from snap, inlining the overlay bytes held in obj.
func NewPage(snap viewer.Snapshot, obj overlay.Object, now time.Time) (*Page, error) {
	if snap.Overlay == nil {
		return nil, ErrNoOverlay
	}
	ov := *snap.Overlay

	bounds, err := toJSON([][2]float64{
		{ov.Bounds.SouthWest.Latitude, ov.Bounds.SouthWest.Longitude},
		{ov.Bounds.NorthEast.Latitude, ov.Bounds.NorthEast.Longitude},
	})
	if err != nil {
		return nil, err
	}
	viewport := bounds
	if snap.Viewport != nil {
		viewport, err = toJSON([][2]float64{
			{snap.Viewport.SouthWest.Latitude, snap.Viewport.SouthWest.Longitude},
			{snap.Viewport.NorthEast.Latitude, snap.Viewport.NorthEast.Longitude},
		})
		if err != nil {
			return nil, err
		}
	}

	page := &Page{
		Title:        ov.Index.Label(),
		Index:        ov.Index.String(),
		Mode:         snap.Forecast.Mode.String(),
		Overlay:      ov,
		ImageURL:     template.URL("data:" + obj.ContentType + ";base64," + base64.StdEncoding.EncodeToString(obj.Blob)),
		BoundsJSON:   bounds,
		ViewportJSON: viewport,
		GeneratedAt:  now.UTC().Format("Jan 2, 2006 at 15:04 UTC"),
	}
	if snap.Forecast.BaseTime != nil {
		page.BaseTime = snap.Forecast.BaseTime.UTC().Format(time.RFC3339)
	}
	if snap.Forecast.Selected != nil {
		page.ForecastTime = snap.Forecast.Selected.UTC().Format(time.RFC3339)
	}
	if p := snap.Tooltip; p != nil {
		page.Tooltip = popupText(p)
		page.TooltipJSON, err = toJSON([2]float64{p.Point.Latitude, p.Point.Longitude})
		if err != nil {
			return nil, err
		}
	}
	if snap.Forecast.Error != "" {
		page.Errors = append(page.Errors, snap.Forecast.Error)
	}
	if snap.OverlayError != "" {
		page.Errors = append(page.Errors, snap.OverlayError)
	}
	return page, nil
}

func popupText(p *tooltip.Popup) string {
	if p.Warning != "" {
		return p.Warning
	}
	var text string
	if p.Value != nil {
		text = strconv.FormatFloat(*p.Value, 'g', 4, 64)
	}
	if p.Category != nil {
		if text != "" {
			return text + " (" + p.Category.Name + ")"
		}
		return p.Category.Name
	}
	return text
}

// HTML executes the map template.
func (p *Page) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("failed to render map page: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePage renders the page to path, replacing any previous file atomically.
func WritePage(p *Page, path string) error {
	html, err := p.HTML()
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(html)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteImage writes the raw overlay bytes to path.
func WriteImage(obj overlay.Object, path string) error {
	if err := atomic.WriteFile(path, bytes.NewReader(obj.Blob)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
   <meta charset="UTF-8"/>
   <title>{{.Title}} · {{.ForecastTime}}</title>
   <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" />
   <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
   <style>
      body { margin: 0; font-family: sans-serif; background: #121212; color: #e0e0e0; }
      header { padding: 8px 16px; background: #2d2d45; border-bottom: 1px solid #444466; }
      header span { margin-right: 16px; }
      #map { position: absolute; top: 48px; bottom: 0; left: 0; right: 0; }
      .legend { background: #1e1e1e; padding: 8px; border: 1px solid #333; color: #e0e0e0; }
      .legend i { display: inline-block; width: 14px; height: 14px; margin-right: 6px; vertical-align: middle; }
      .error { color: #ff8a80; }
   </style>
</head>
<body>
<header>
   <strong>{{.Title}}</strong>
   <span>mode: {{.Mode}}</span>
   <span>base: {{.BaseTime}}</span>
   <span>forecast: {{.ForecastTime}}</span>
   <span>generated {{.GeneratedAt}}</span>
   {{range .Errors}}<span class="error">{{.}}</span>{{end}}
</header>
<div id="map"></div>
<script>
   const map = L.map('map');
   L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
      attribution: '&copy; OpenStreetMap contributors'
   }).addTo(map);
   const bounds = {{.BoundsJSON}};
   L.imageOverlay("{{.ImageURL}}", bounds, { opacity: 0.7 }).addTo(map);
   map.fitBounds({{.ViewportJSON}});
   const legend = L.control({ position: 'bottomright' });
   legend.onAdd = function () {
      const div = L.DomUtil.create('div', 'legend');
      div.innerHTML = document.getElementById('legend').innerHTML;
      return div;
   };
   legend.addTo(map);
   {{if .Tooltip}}L.popup().setLatLng({{.TooltipJSON}}).setContent({{.Tooltip}}).openOn(map);{{end}}
</script>
<template id="legend">
   <strong>{{.Overlay.Legend.Title}}</strong><br/>
   {{range .Overlay.Legend.Entries}}<i style="background: {{.Color}}"></i>{{.Label}}<br/>{{end}}
</template>
</body>
</html>
`))
