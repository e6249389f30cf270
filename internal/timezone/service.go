package timezone

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fireview/internal/types"

	"github.com/ringsaturn/tzf"
)

var ErrNoZone = errors.New("no timezone for point")

// Resolver finds the local zone of a queried point.
type Resolver interface {
	Resolve(point types.Coords) (Zone, error)
}

// Zone is an IANA zone and the location loaded for it.
type Zone struct {
	Name     string
	Location *time.Location
}

// Local converts t to the zone's wall clock.
func (z Zone) Local(t time.Time) time.Time {
	if z.Location == nil {
		return t.UTC()
	}
	return t.In(z.Location)
}

type resolver struct {
	finder tzf.F

	mu    sync.RWMutex
	zones map[string]*time.Location
}

var (
	instance *resolver
	initErr  error
	once     sync.Once
)

// NewResolver returns the process-wide resolver. The tzf polygon data is
// large, so it is loaded once.
func NewResolver() (Resolver, error) {
	once.Do(func() {
		finder, err := tzf.NewDefaultFinder()
		if err != nil {
			initErr = fmt.Errorf("failed to initialize timezone finder: %w", err)
			return
		}
		instance = &resolver{
			finder: finder,
			zones:  make(map[string]*time.Location),
		}
	})
	if initErr != nil {
		return nil, initErr
	}
	return instance, nil
}

// Resolve returns the zone containing point. Open ocean cells have no zone.
func (r *resolver) Resolve(point types.Coords) (Zone, error) {
	name := r.finder.GetTimezoneName(point.Longitude, point.Latitude)
	if name == "" {
		return Zone{}, fmt.Errorf("%w: %s", ErrNoZone, point)
	}

	r.mu.RLock()
	loc, ok := r.zones[name]
	r.mu.RUnlock()
	if ok {
		return Zone{Name: name, Location: loc}, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("failed to load zone %s: %w", name, err)
	}

	r.mu.Lock()
	r.zones[name] = loc
	r.mu.Unlock()

	return Zone{Name: name, Location: loc}, nil
}
