package viewer

import (
	"sync"

	"fireview/internal/overlay"
	"fireview/internal/tooltip"
	"fireview/internal/types"
)

type EventKind string

const (
	EventStepsLoading     EventKind = "steps_loading"
	EventStepsLoaded      EventKind = "steps_loaded"
	EventStepsFailed      EventKind = "steps_failed"
	EventSelectionChanged EventKind = "selection_changed"
	EventOverlayLoading   EventKind = "overlay_loading"
	EventOverlayUpdated   EventKind = "overlay_updated"
	EventOverlayFailed    EventKind = "overlay_failed"
	EventOverlayCleared   EventKind = "overlay_cleared"
	EventTooltipUpdated   EventKind = "tooltip_updated"
	EventTooltipClosed    EventKind = "tooltip_closed"
)

// Event is published by a Session whenever displayed state changes. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind      EventKind        `json:"kind"`
	Selection *types.Selection `json:"selection,omitempty"`
	Overlay   *overlay.Overlay `json:"overlay,omitempty"`
	Popup     *tooltip.Popup   `json:"popup,omitempty"`
	Loading   bool             `json:"loading,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Events is a typed publish/subscribe channel owned by one Session.
type Events struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func newEvents() *Events {
	return &Events{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it. fn runs
// synchronously on the publishing goroutine and must not call back into the
// Session.
func (e *Events) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

func (e *Events) publish(ev Event) {
	e.mu.RLock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
