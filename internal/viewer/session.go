// Package viewer drives one map view: it owns the forecast time model and
// the overlay and tooltip request slots, and exposes the user triggers.
package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fireview/internal/forecast"
	"fireview/internal/geo"
	"fireview/internal/orchestrator"
	"fireview/internal/overlay"
	"fireview/internal/palette"
	"fireview/internal/providers/firerisk"
	"fireview/internal/timezone"
	"fireview/internal/tooltip"
	"fireview/internal/types"
)

var ErrClosed = errors.New("viewer session closed")

// Client is the part of the fire-risk API a session needs.
type Client interface {
	forecast.StepSource
	tooltip.PointQuerier
	GetHeatmapImage(ctx context.Context, index types.Index, mode types.Mode, baseTime, forecastTime time.Time, bbox string) (*firerisk.HeatmapImage, error)
	GetLatestDate(ctx context.Context, index types.Index) (time.Time, error)
	GetAvailableDates(ctx context.Context, index types.Index) ([]time.Time, error)
}

type Options struct {
	Index types.Index
	Mode  types.Mode
	// Scales defaults to the built-in palettes.
	Scales palette.Set
	// Zones is optional; without it popups carry no local time.
	Zones timezone.Resolver
	// Store defaults to a private URL store.
	Store *overlay.URLStore
}

// Snapshot is everything a front-end needs to draw the view.
type Snapshot struct {
	Forecast        forecast.View     `json:"forecast"`
	ControlsEnabled bool              `json:"controls_enabled"`
	Viewport        *geo.Bounds       `json:"viewport,omitempty"`
	BBox            string            `json:"bbox,omitempty"`
	Loading         bool              `json:"loading"`
	Overlay         *overlay.Overlay  `json:"overlay,omitempty"`
	OverlayError    string            `json:"overlay_error,omitempty"`
	Tooltip         *tooltip.Popup    `json:"tooltip,omitempty"`
}

type Session struct {
	client      Client
	model       *forecast.Model
	overlaySlot *orchestrator.Slot[*firerisk.HeatmapImage]
	overlay     *overlay.Adapter
	tooltip     *tooltip.Adapter
	store       *overlay.URLStore
	events      *Events
	logger      *slog.Logger

	// ctx scopes every overlay and tooltip request; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	// dispatchMu orders overlay and tooltip dispatch; each dispatch reads
	// the model's current pair under it.
	dispatchMu sync.Mutex

	mu         sync.Mutex
	viewport   *geo.Bounds
	loading    bool
	overlayErr string
	closed     bool
}

func NewSession(client Client, opts Options, logger *slog.Logger) (*Session, error) {
	if opts.Index == "" {
		opts.Index = types.IndexPOF
	}
	if !opts.Mode.Valid() {
		opts.Mode = types.ByDate
	}
	if opts.Scales == nil {
		scales, err := palette.NewSet(nil)
		if err != nil {
			return nil, err
		}
		opts.Scales = scales
	}
	if opts.Store == nil {
		opts.Store = overlay.NewURLStore(logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client:      client,
		model:       forecast.NewModel(client, opts.Index, opts.Mode, logger),
		overlaySlot: orchestrator.NewSlot[*firerisk.HeatmapImage]("overlay", logger),
		overlay:     overlay.NewAdapter(opts.Store, opts.Scales, logger),
		tooltip:     tooltip.NewAdapter(client, opts.Scales, opts.Zones, logger),
		store:       opts.Store,
		events:      newEvents(),
		logger:      logger.With("component", "viewer"),
		ctx:         ctx,
		cancel:      cancel,
	}

	s.tooltip.OnChange(func(p tooltip.Popup, open bool) {
		if !open {
			s.events.publish(Event{Kind: EventTooltipClosed})
			return
		}
		s.events.publish(Event{Kind: EventTooltipUpdated, Popup: &p, Loading: p.Loading, Error: p.Warning})
	})

	return s, nil
}

func (s *Session) Events() *Events {
	return s.events
}

// Store holds the bytes behind overlay URLs.
func (s *Session) Store() *overlay.URLStore {
	return s.store
}

// Current returns the selected (base_time, forecast_time) pair.
func (s *Session) Current() (types.Selection, bool) {
	return s.model.Current()
}

// SetViewport records the settled map viewport and refetches the overlay.
func (s *Session) SetViewport(southWest, northEast types.Coords) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.viewport = &geo.Bounds{SouthWest: southWest, NorthEast: northEast}
	s.mu.Unlock()

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	s.refreshOverlay()
	return nil
}

// SelectDate loads the steps of a calendar date (ByDate) or of a run
// (ByForecast) with the current index and mode.
func (s *Session) SelectDate(ctx context.Context, date time.Time) error {
	if s.isClosed() {
		return ErrClosed
	}
	snap := s.model.Snapshot()
	s.overlaySlot.Cancel()
	s.events.publish(Event{Kind: EventStepsLoading, Loading: true})
	sel, err := s.model.Load(ctx, snap.Index, snap.Mode, date)
	return s.afterLoad(sel, err)
}

// LoadLatest selects the most recent date with data.
func (s *Session) LoadLatest(ctx context.Context) (time.Time, error) {
	if s.isClosed() {
		return time.Time{}, ErrClosed
	}
	latest, err := s.client.GetLatestDate(ctx, s.model.Snapshot().Index)
	if err != nil {
		return time.Time{}, err
	}
	return latest, s.SelectDate(ctx, latest)
}

// AvailableDates lists the dates with data for the current index.
func (s *Session) AvailableDates(ctx context.Context) ([]time.Time, error) {
	return s.client.GetAvailableDates(ctx, s.model.Snapshot().Index)
}

// SetIndex switches product. Without a selected date only the index is recorded.
func (s *Session) SetIndex(ctx context.Context, index types.Index) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.overlaySlot.Cancel()
	sel, err := s.model.SetIndex(ctx, index)
	if errors.Is(err, forecast.ErrNoAnchor) {
		return nil
	}
	return s.afterLoad(sel, err)
}

// SetMode toggles ByDate/ByForecast and reloads the steps around the current
// selection.
func (s *Session) SetMode(ctx context.Context, mode types.Mode) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.overlaySlot.Cancel()
	sel, err := s.model.SetMode(ctx, mode)
	if errors.Is(err, forecast.ErrNoAnchor) {
		return nil
	}
	return s.afterLoad(sel, err)
}

// SelectStep moves the slider to forecastTime.
func (s *Session) SelectStep(forecastTime time.Time) error {
	if s.isClosed() {
		return ErrClosed
	}
	sel, err := s.model.Select(forecastTime)
	if err != nil {
		return err
	}
	s.onSelection(sel)
	return nil
}

// SelectStepAt moves the slider to position i.
func (s *Session) SelectStepAt(i int) error {
	if s.isClosed() {
		return ErrClosed
	}
	sel, err := s.model.SelectAt(i)
	if err != nil {
		return err
	}
	s.onSelection(sel)
	return nil
}

// OpenTooltip queries the value at point for the displayed time.
func (s *Session) OpenTooltip(point types.Coords) error {
	if s.isClosed() {
		return ErrClosed
	}
	sel, ok := s.model.Current()
	if !ok {
		return forecast.ErrNotReady
	}
	return s.tooltip.Open(s.ctx, point, sel)
}

func (s *Session) CloseTooltip() {
	s.tooltip.Close()
}

func (s *Session) afterLoad(sel types.Selection, err error) error {
	switch {
	case err == nil:
		s.events.publish(Event{Kind: EventStepsLoaded, Selection: &sel})
		s.onSelection(sel)
		return nil
	case errors.Is(err, forecast.ErrSuperseded):
		return nil
	case firerisk.IsAbort(err):
		// The model is back on its previous pair; restart its overlay.
		s.dispatch()
		return err
	}

	s.logger.Error("step list unavailable", "error", err)
	s.overlaySlot.Cancel()
	s.overlay.Clear()
	s.events.publish(Event{Kind: EventStepsFailed, Error: err.Error()})
	s.events.publish(Event{Kind: EventOverlayCleared})
	return err
}

func (s *Session) onSelection(sel types.Selection) {
	s.events.publish(Event{Kind: EventSelectionChanged, Selection: &sel})
	s.dispatch()
}

// dispatch points the overlay and an open tooltip at the current pair. A
// trigger that lost a race to a newer one still dispatches the newer pair.
func (s *Session) dispatch() {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.refreshOverlay()

	sel, ok := s.model.Current()
	if !ok {
		return
	}
	err := s.tooltip.Refresh(s.ctx, sel)
	if err != nil && !errors.Is(err, tooltip.ErrNotOpen) && !errors.Is(err, orchestrator.ErrClosed) {
		s.logger.Error("failed to refresh tooltip", "error", err)
	}
}

func (s *Session) refreshOverlay() {
	sel, ok := s.model.Current()

	s.mu.Lock()
	vp := s.viewport
	closed := s.closed
	s.mu.Unlock()

	if closed || !ok || vp == nil {
		return
	}
	bbox := geo.BBoxFromBounds(*vp).String()

	fetch := func(ctx context.Context) (*firerisk.HeatmapImage, error) {
		return s.client.GetHeatmapImage(ctx, sel.Index, sel.Mode, sel.BaseTime, sel.ForecastTime, bbox)
	}

	_, err := s.overlaySlot.Start(s.ctx, fetch, orchestrator.Handlers[*firerisk.HeatmapImage]{
		OnLoading: func(loading bool) {
			s.mu.Lock()
			s.loading = loading
			s.mu.Unlock()
			s.events.publish(Event{Kind: EventOverlayLoading, Loading: loading})
		},
		OnResult: func(img *firerisk.HeatmapImage) {
			ov, err := s.overlay.Apply(img, sel.Index)
			if err != nil {
				s.setOverlayError(err.Error())
				s.events.publish(Event{Kind: EventOverlayFailed, Error: err.Error()})
				return
			}
			s.setOverlayError("")
			s.events.publish(Event{Kind: EventOverlayUpdated, Overlay: &ov, Selection: &sel})
		},
		OnError: func(err error) {
			s.logger.Error("overlay fetch failed", "index", sel.Index, "bbox", bbox, "error", err)
			s.overlay.Clear()
			s.setOverlayError(err.Error())
			s.events.publish(Event{Kind: EventOverlayFailed, Error: err.Error()})
		},
	})
	if err != nil && !errors.Is(err, orchestrator.ErrClosed) {
		s.logger.Error("failed to start overlay request", "error", err)
	}
}

func (s *Session) setOverlayError(msg string) {
	s.mu.Lock()
	s.overlayErr = msg
	s.mu.Unlock()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot copies the displayed state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Forecast: s.model.Snapshot(),
	}
	snap.ControlsEnabled = snap.Forecast.State == forecast.StateReady

	if ov, ok := s.overlay.Current(); ok {
		snap.Overlay = &ov
	}
	if p, ok := s.tooltip.Popup(); ok {
		snap.Tooltip = &p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewport != nil {
		vp := *s.viewport
		snap.Viewport = &vp
		snap.BBox = geo.BBoxFromBounds(vp).String()
	}
	snap.Loading = s.loading
	snap.OverlayError = s.overlayErr
	return snap
}

// Wait blocks until outstanding overlay and tooltip requests have settled.
func (s *Session) Wait() {
	s.overlaySlot.Wait()
	s.tooltip.Wait()
}

// Close aborts every request and releases the displayed overlay.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.overlaySlot.Close()
	s.tooltip.Shutdown()
	s.overlay.Close()
	s.model.Reset()
	s.logger.Debug("session closed")
}
