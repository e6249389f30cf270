// Package tooltip keeps an open point-query popup in step with the displayed
// forecast time.
package tooltip

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"fireview/internal/geo"
	"fireview/internal/orchestrator"
	"fireview/internal/palette"
	"fireview/internal/providers/firerisk"
	"fireview/internal/timezone"
	"fireview/internal/types"

	"github.com/paulmach/orb"
)

var ErrNotOpen = errors.New("no tooltip open")

// WarningPrefix starts the popup text shown when a point query fails.
const WarningPrefix = "Could not load value: "

type PointQuerier interface {
	GetTooltipValue(ctx context.Context, index types.Index, mode types.Mode, baseTime, forecastTime time.Time, point orb.Point) (*firerisk.TooltipAPIResponse, error)
}

// Cell describes the grid cell nearest to the queried point.
type Cell struct {
	Lon           float64 `json:"lon"`
	Lat           float64 `json:"lat"`
	XIndex        int     `json:"x_index"`
	YIndex        int     `json:"y_index"`
	ResolutionDeg float64 `json:"resolution_deg"`
	DistanceKm    float64 `json:"distance_km"`
	Description   string  `json:"description,omitempty"`
}

// Popup is the content of an open tooltip.
type Popup struct {
	Point     types.Coords      `json:"point"`
	Point3857 [2]float64        `json:"point_3857"`
	Selection types.Selection   `json:"selection"`
	Loading   bool              `json:"loading"`
	Value     *float64          `json:"value,omitempty"`
	Category  *palette.Category `json:"category,omitempty"`
	Resolved  *types.Coords     `json:"resolved,omitempty"`
	Cell      *Cell             `json:"cell,omitempty"`
	Timezone  string            `json:"timezone,omitempty"`
	LocalTime *time.Time        `json:"local_time,omitempty"`
	Warning   string            `json:"warning,omitempty"`
}

type pointResult struct {
	resp *firerisk.TooltipAPIResponse
	zone timezone.Zone
}

type Adapter struct {
	client PointQuerier
	scales palette.Set
	zones  timezone.Resolver
	slot   *orchestrator.Slot[pointResult]
	logger *slog.Logger

	mu       sync.Mutex
	popup    *Popup
	popupID  uint64
	onChange func(Popup, bool)
}

// NewAdapter creates a closed tooltip. zones may be nil, in which case the
// popup carries no local time.
func NewAdapter(client PointQuerier, scales palette.Set, zones timezone.Resolver, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		scales: scales,
		zones:  zones,
		slot:   orchestrator.NewSlot[pointResult]("tooltip", logger),
		logger: logger.With("component", "tooltip"),
	}
}

// OnChange registers fn to receive every popup update. open is false once
// the popup is dismissed. fn must not call back into the adapter.
func (a *Adapter) OnChange(fn func(p Popup, open bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Open shows the popup at point and queries it for sel. An already open
// popup moves to the new point.
func (a *Adapter) Open(ctx context.Context, point types.Coords, sel types.Selection) error {
	p3857 := geo.ProjectPoint(point)

	a.mu.Lock()
	a.popupID++
	id := a.popupID
	a.popup = &Popup{
		Point:     point,
		Point3857: [2]float64{p3857.X(), p3857.Y()},
		Selection: sel,
	}
	a.mu.Unlock()

	a.logger.Debug("tooltip opened", "point", point.String())
	return a.query(ctx, id, sel)
}

// Refresh re-queries the open popup for sel, cancelling the previous query.
// The popup stays open. It returns ErrNotOpen when no popup is shown.
func (a *Adapter) Refresh(ctx context.Context, sel types.Selection) error {
	a.mu.Lock()
	if a.popup == nil {
		a.mu.Unlock()
		return ErrNotOpen
	}
	id := a.popupID
	a.popup.Selection = sel
	a.mu.Unlock()

	return a.query(ctx, id, sel)
}

func (a *Adapter) query(ctx context.Context, id uint64, sel types.Selection) error {
	a.mu.Lock()
	if a.popup == nil || a.popupID != id {
		a.mu.Unlock()
		return ErrNotOpen
	}
	point := a.popup.Point
	p3857 := orb.Point(a.popup.Point3857)
	a.mu.Unlock()

	fetch := func(ctx context.Context) (pointResult, error) {
		resp, err := a.client.GetTooltipValue(ctx, sel.Index, sel.Mode, sel.BaseTime, sel.ForecastTime, p3857)
		if err != nil {
			return pointResult{}, err
		}
		res := pointResult{resp: resp}
		if a.zones != nil {
			zone, err := a.zones.Resolve(point)
			if err != nil {
				a.logger.Debug("no local timezone for point", "point", point.String(), "error", err)
			} else {
				res.zone = zone
			}
		}
		return res, nil
	}

	_, err := a.slot.Start(ctx, fetch, orchestrator.Handlers[pointResult]{
		OnLoading: func(loading bool) {
			a.update(id, func(p *Popup) { p.Loading = loading })
		},
		OnResult: func(res pointResult) {
			a.update(id, func(p *Popup) { a.fill(p, res) })
		},
		OnError: func(err error) {
			a.logger.Error("point query failed", "point", point.String(), "error", err)
			a.update(id, func(p *Popup) {
				clearValue(p)
				p.Warning = WarningPrefix + err.Error()
			})
		},
	})
	return err
}

func (a *Adapter) fill(p *Popup, res pointResult) {
	clearValue(p)
	resp := res.resp

	if resp.Value == nil || resp.Point.IsNoData || math.IsNaN(*resp.Value) {
		c := palette.NoData
		p.Category = &c
	} else {
		v := *resp.Value
		p.Value = &v
		if scale, err := a.scales.Scale(p.Selection.Index); err == nil {
			c := scale.Classify(v)
			p.Category = &c
		}
	}

	resolved := types.NewCoords(resp.Point.Lat, resp.Point.Lon)
	p.Resolved = &resolved
	p.Cell = &Cell{
		Lon:           resp.Point.GridLon,
		Lat:           resp.Point.GridLat,
		XIndex:        resp.Point.CellIndexX,
		YIndex:        resp.Point.CellIndexY,
		ResolutionDeg: resp.Point.Resolution,
		DistanceKm:    resp.Point.DistanceKm,
		Description:   resp.Point.Description,
	}

	if res.zone.Name != "" {
		p.Timezone = res.zone.Name
		local := res.zone.Local(p.Selection.ForecastTime)
		p.LocalTime = &local
	}
}

func clearValue(p *Popup) {
	p.Value = nil
	p.Category = nil
	p.Resolved = nil
	p.Cell = nil
	p.Timezone = ""
	p.LocalTime = nil
	p.Warning = ""
}

// update mutates the popup if it is still the one identified by id.
func (a *Adapter) update(id uint64, fn func(p *Popup)) {
	a.mu.Lock()
	if a.popup == nil || a.popupID != id {
		a.mu.Unlock()
		return
	}
	fn(a.popup)
	snap := *a.popup
	notify := a.onChange
	a.mu.Unlock()

	if notify != nil {
		notify(snap, true)
	}
}

// Close dismisses the popup and aborts its query.
func (a *Adapter) Close() {
	a.slot.Cancel()

	a.mu.Lock()
	wasOpen := a.popup != nil
	a.popup = nil
	a.popupID++
	notify := a.onChange
	a.mu.Unlock()

	if wasOpen {
		a.logger.Debug("tooltip closed")
		if notify != nil {
			notify(Popup{}, false)
		}
	}
}

// Shutdown closes the popup and waits for the query goroutine to exit.
func (a *Adapter) Shutdown() {
	a.Close()
	a.slot.Close()
}

// Popup returns the open popup.
func (a *Adapter) Popup() (Popup, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.popup == nil {
		return Popup{}, false
	}
	return *a.popup, true
}

// Wait blocks until the outstanding query has been applied or discarded.
func (a *Adapter) Wait() {
	a.slot.Wait()
}
