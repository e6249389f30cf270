// Package overlay turns fetched heatmap images into the displayed map layer
// and its legend. It is the only owner of the displayed object URL.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fireview/internal/geo"
	"fireview/internal/palette"
	"fireview/internal/providers/firerisk"
	"fireview/internal/types"
)

var ErrClosed = errors.New("overlay adapter closed")

// Overlay is what the map layer shows.
type Overlay struct {
	URL         string         `json:"url"`
	ContentType string         `json:"content_type"`
	Index       types.Index    `json:"index"`
	Bounds      geo.Bounds     `json:"bounds"`
	Extent      geo.Extent3857 `json:"extent_3857"`
	VMin        *float64       `json:"vmin,omitempty"`
	VMax        *float64       `json:"vmax,omitempty"`
	Legend      palette.Legend `json:"legend"`
}

type Adapter struct {
	mu      sync.Mutex
	store   *URLStore
	scales  palette.Set
	current *Overlay
	closed  bool
	logger  *slog.Logger
}

func NewAdapter(store *URLStore, scales palette.Set, logger *slog.Logger) *Adapter {
	return &Adapter{
		store:  store,
		scales: scales,
		logger: logger.With("component", "overlay"),
	}
}

// Apply displays img, revoking the URL it replaces.
func (a *Adapter) Apply(img *firerisk.HeatmapImage, index types.Index) (Overlay, error) {
	if img == nil {
		return Overlay{}, errors.New("no heatmap image")
	}
	scale, err := a.scales.Scale(index)
	if err != nil {
		return Overlay{}, fmt.Errorf("failed to build legend: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Overlay{}, ErrClosed
	}

	next := &Overlay{
		URL:         a.store.Create(img.Blob, img.ContentType),
		ContentType: img.ContentType,
		Index:       index,
		Bounds:      geo.ToOverlayBounds(img.Extent),
		Extent:      img.Extent,
		VMin:        img.VMin,
		VMax:        img.VMax,
		Legend:      scale.Legend(img.VMin, img.VMax),
	}

	prev := a.current
	a.current = next
	if prev != nil {
		a.store.Revoke(prev.URL)
	}

	a.logger.Debug("overlay swapped", "url", next.URL, "index", index)
	return *next, nil
}

// Clear removes the displayed overlay.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked()
}

func (a *Adapter) clearLocked() {
	if a.current == nil {
		return
	}
	a.store.Revoke(a.current.URL)
	a.logger.Debug("overlay cleared", "url", a.current.URL)
	a.current = nil
}

// Close clears the overlay and rejects further Applies.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked()
	a.closed = true
}

func (a *Adapter) Current() (Overlay, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Overlay{}, false
	}
	return *a.current, true
}
