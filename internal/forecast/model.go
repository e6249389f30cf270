package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fireview/internal/types"
)

// State is the lifecycle of the step list.
type State int

const (
	StateIdle State = iota
	StateLoadingSteps
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingSteps:
		return "loading_steps"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateError; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// NoStepsMessage is shown when a step list comes back empty.
const NoStepsMessage = "No forecast steps available for this date."

var (
	ErrNoSteps     = errors.New(NoStepsMessage)
	ErrSuperseded  = errors.New("step list request superseded")
	ErrNotReady    = errors.New("forecast steps not loaded")
	ErrUnknownStep = errors.New("forecast time is not in the loaded step list")
	ErrNoAnchor    = errors.New("no date or forecast run selected")
)

// StepSource loads the forecast steps for a date (ByDate) or a run (ByForecast).
type StepSource interface {
	GetForecastSteps(ctx context.Context, index types.Index, mode types.Mode, date time.Time) (*types.StepList, error)
}

// View is a copy of the model state for rendering.
type View struct {
	State    State                `json:"state"`
	Index    types.Index          `json:"index"`
	Mode     types.Mode           `json:"mode"`
	Anchor   *time.Time           `json:"anchor,omitempty"`
	BaseTime *time.Time           `json:"base_time,omitempty"`
	Steps    []types.ForecastStep `json:"steps"`
	Selected *time.Time           `json:"selected,omitempty"`
	Error    string               `json:"error,omitempty"`
}

type modelState struct {
	state    State
	index    types.Index
	mode     types.Mode
	anchor   time.Time
	list     types.StepList
	selected time.Time
	errMsg   string
}

// Model owns the step list and the current selection. Only it decides which
// (base_time, forecast_time) pair is current; everything else reads Current.
type Model struct {
	mu     sync.Mutex
	source StepSource
	logger *slog.Logger

	modelState
	gen    uint64
	cancel context.CancelFunc
}

// NewModel creates an idle model for the given index and mode.
func NewModel(source StepSource, index types.Index, mode types.Mode, logger *slog.Logger) *Model {
	return &Model{
		source: source,
		logger: logger.With("component", "forecast-model"),
		modelState: modelState{
			state: StateIdle,
			index: index,
			mode:  mode,
		},
	}
}

// Load fetches the step list for anchor and, on success, selects its first
// step. A newer Load cancels this one; a superseded Load returns ErrSuperseded
// and leaves the state alone.
func (m *Model) Load(ctx context.Context, index types.Index, mode types.Mode, anchor time.Time) (types.Selection, error) {
	if !mode.Valid() {
		return types.Selection{}, fmt.Errorf("%w: %d", types.ErrUnknownMode, int(mode))
	}
	if anchor.IsZero() {
		return types.Selection{}, ErrNoAnchor
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	prev := m.modelState
	m.state = StateLoadingSteps
	m.index = index
	m.mode = mode
	m.anchor = anchor
	m.errMsg = ""
	m.list = types.StepList{}
	m.selected = time.Time{}
	m.mu.Unlock()
	defer cancel()

	m.logger.Debug("loading forecast steps",
		"index", index,
		"mode", mode,
		"anchor", anchor.Format(time.RFC3339),
	)

	list, err := m.source.GetForecastSteps(ctx, index, mode, anchor)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return types.Selection{}, ErrSuperseded
	}
	m.cancel = nil

	if ctx.Err() != nil {
		m.modelState = prev
		return types.Selection{}, ctx.Err()
	}

	if err != nil {
		m.logger.Error("failed to load forecast steps", "index", index, "mode", mode, "error", err)
		m.fail(err.Error())
		return types.Selection{}, err
	}

	if list == nil || len(list.Steps) == 0 {
		m.logger.Warn("empty forecast step list", "index", index, "mode", mode)
		m.fail(NoStepsMessage)
		return types.Selection{}, ErrNoSteps
	}

	m.list = *list
	m.selected = list.Steps[0].ForecastTime
	if !list.InitialForecastTime.IsZero() && list.Contains(list.InitialForecastTime) {
		m.selected = list.InitialForecastTime
	}
	m.state = StateReady

	m.logger.Debug("forecast steps loaded",
		"steps", len(list.Steps),
		"selected", m.selected.Format(time.RFC3339),
	)

	return m.currentLocked(), nil
}

// SetMode switches between ByDate and ByForecast and reloads the step list
// from the best anchor available: leaving ByForecast keeps the day of the
// selected forecast time, leaving ByDate keeps the selected run.
func (m *Model) SetMode(ctx context.Context, mode types.Mode) (types.Selection, error) {
	m.mu.Lock()
	if mode == m.mode && m.state == StateReady {
		sel := m.currentLocked()
		m.mu.Unlock()
		return sel, nil
	}
	anchor := m.anchorForLocked(mode)
	index := m.index
	if anchor.IsZero() {
		m.mode = mode
		m.mu.Unlock()
		return types.Selection{}, ErrNoAnchor
	}
	m.mu.Unlock()

	return m.Load(ctx, index, mode, anchor)
}

// SetIndex reloads the step list for another index with the current mode and anchor.
func (m *Model) SetIndex(ctx context.Context, index types.Index) (types.Selection, error) {
	m.mu.Lock()
	mode := m.mode
	anchor := m.anchor
	if anchor.IsZero() {
		m.index = index
		m.mu.Unlock()
		return types.Selection{}, ErrNoAnchor
	}
	m.mu.Unlock()

	return m.Load(ctx, index, mode, anchor)
}

// Reload repeats the last Load.
func (m *Model) Reload(ctx context.Context) (types.Selection, error) {
	m.mu.Lock()
	index, mode, anchor := m.index, m.mode, m.anchor
	m.mu.Unlock()

	return m.Load(ctx, index, mode, anchor)
}

// Select moves the slider to forecastTime. No network call is made.
func (m *Model) Select(forecastTime time.Time) (types.Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady {
		return types.Selection{}, ErrNotReady
	}
	if !m.list.Contains(forecastTime) {
		return types.Selection{}, fmt.Errorf("%w: %s", ErrUnknownStep, forecastTime.UTC().Format(time.RFC3339))
	}
	for _, s := range m.list.Steps {
		if s.ForecastTime.Equal(forecastTime) {
			m.selected = s.ForecastTime
			break
		}
	}
	return m.currentLocked(), nil
}

// SelectAt moves the slider to position i of the step list.
func (m *Model) SelectAt(i int) (types.Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady {
		return types.Selection{}, ErrNotReady
	}
	if i < 0 || i >= len(m.list.Steps) {
		return types.Selection{}, fmt.Errorf("%w: position %d of %d", ErrUnknownStep, i, len(m.list.Steps))
	}
	m.selected = m.list.Steps[i].ForecastTime
	return m.currentLocked(), nil
}

// Current returns the selected pair. ok is false unless the model is Ready.
func (m *Model) Current() (types.Selection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady {
		return types.Selection{}, false
	}
	return m.currentLocked(), true
}

// Reset cancels any load in flight and returns to Idle.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.modelState = modelState{state: StateIdle, index: m.index, mode: m.mode}
}

// Snapshot copies the current state.
func (m *Model) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := View{
		State: m.state,
		Index: m.index,
		Mode:  m.mode,
		Steps: append([]types.ForecastStep{}, m.list.Steps...),
		Error: m.errMsg,
	}
	if !m.anchor.IsZero() {
		a := m.anchor
		snap.Anchor = &a
	}
	if m.state == StateReady {
		sel := m.currentLocked()
		snap.BaseTime = &sel.BaseTime
		snap.Selected = &sel.ForecastTime
	}
	return snap
}

func (m *Model) fail(msg string) {
	m.state = StateError
	m.errMsg = msg
	m.list = types.StepList{}
	m.selected = time.Time{}
}

func (m *Model) currentLocked() types.Selection {
	base := m.list.BaseTime
	for _, s := range m.list.Steps {
		if s.ForecastTime.Equal(m.selected) {
			if !s.BaseTime.IsZero() {
				base = s.BaseTime
			}
			break
		}
	}
	return types.Selection{
		Index:        m.index,
		Mode:         m.mode,
		BaseTime:     base,
		ForecastTime: m.selected,
	}
}

func (m *Model) anchorForLocked(next types.Mode) time.Time {
	if m.state != StateReady {
		return m.anchor
	}
	sel := m.currentLocked()
	switch next {
	case types.ByDate:
		return StartOfDayUTC(sel.ForecastTime)
	case types.ByForecast:
		return StartOfDayUTC(sel.BaseTime)
	default:
		return m.anchor
	}
}
