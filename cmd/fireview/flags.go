package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fireview/internal/geo"
	"fireview/internal/types"
)

var errBadBounds = errors.New("bounds must be south,west,north,east in degrees")

// parseBounds reads a "south,west,north,east" viewport.
func parseBounds(s string) (geo.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Bounds{}, errBadBounds
	}
	v := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Bounds{}, fmt.Errorf("%w: %v", errBadBounds, err)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] || v[0] < -90 || v[2] > 90 {
		return geo.Bounds{}, errBadBounds
	}
	return geo.Bounds{
		SouthWest: types.Coords{Latitude: v[0], Longitude: v[1]},
		NorthEast: types.Coords{Latitude: v[2], Longitude: v[3]},
	}, nil
}

// parseDay accepts YYYY-MM-DD. An empty string means "latest".
func parseDay(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, true, nil
}

func parseThresholds(s string) ([]float64, error) {
	var out []float64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q", p)
		}
		out = append(out, f)
	}
	return out, nil
}
