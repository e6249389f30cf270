// Package palette maps fire-risk values to categories, colours and legends.
package palette

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"fireview/internal/types"
)

var ErrBadThresholds = errors.New("thresholds must be ascending and match the category count")

// NoData is returned for NaN values and cells flagged as no-data.
var NoData = Category{Name: "No data", Color: "#bdbdbd"}

type Category struct {
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Scale is the category table of one index. Value v falls in category i when
// Thresholds[i-1] <= v < Thresholds[i].
type Scale struct {
	Index      types.Index
	Thresholds []float64
	Names      []string
	Colors     []string
}

var riskNames = []string{"Very low", "Low", "Moderate", "High", "Very high", "Extreme"}

var riskColors = []string{"#1a9850", "#91cf60", "#fee08b", "#fc8d59", "#d73027", "#7f0000"}

var defaultThresholds = map[types.Index][]float64{
	types.IndexPOF:  {0.002, 0.005, 0.01, 0.02, 0.05},
	types.IndexFOPI: {0.2, 0.4, 0.6, 0.8, 0.9},
}

// Default returns the built-in scale for index.
func Default(index types.Index) (Scale, error) {
	th, ok := defaultThresholds[index]
	if !ok {
		return Scale{}, fmt.Errorf("%w: %q", types.ErrUnknownIndex, string(index))
	}
	return Scale{
		Index:      index,
		Thresholds: append([]float64(nil), th...),
		Names:      riskNames,
		Colors:     riskColors,
	}, nil
}

// WithThresholds returns a copy of s using th as category boundaries.
func (s Scale) WithThresholds(th []float64) (Scale, error) {
	if len(th) != len(s.Names)-1 || !sort.Float64sAreSorted(th) {
		return Scale{}, fmt.Errorf("%w: got %d for %s", ErrBadThresholds, len(th), s.Index)
	}
	for i := 1; i < len(th); i++ {
		if th[i] == th[i-1] {
			return Scale{}, fmt.Errorf("%w: duplicate %v", ErrBadThresholds, th[i])
		}
	}
	s.Thresholds = append([]float64(nil), th...)
	return s, nil
}

// Classify returns the category of v.
func (s Scale) Classify(v float64) Category {
	if math.IsNaN(v) {
		return NoData
	}
	i := sort.Search(len(s.Thresholds), func(i int) bool { return v < s.Thresholds[i] })
	return s.category(i)
}

// Categories lists every category in ascending order.
func (s Scale) Categories() []Category {
	out := make([]Category, len(s.Names))
	for i := range s.Names {
		out[i] = s.category(i)
	}
	return out
}

func (s Scale) category(i int) Category {
	c := Category{Name: s.Names[i], Color: s.Colors[i]}
	if i > 0 {
		lo := s.Thresholds[i-1]
		c.Min = &lo
	}
	if i < len(s.Thresholds) {
		hi := s.Thresholds[i]
		c.Max = &hi
	}
	return c
}

type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type Legend struct {
	Index   types.Index   `json:"index"`
	Title   string        `json:"title"`
	VMin    *float64      `json:"vmin,omitempty"`
	VMax    *float64      `json:"vmax,omitempty"`
	Entries []LegendEntry `json:"entries"`
}

// Legend builds the legend for an overlay. Categories entirely outside
// [vmin, vmax] are omitted when both hints are present.
func (s Scale) Legend(vmin, vmax *float64) Legend {
	lg := Legend{
		Index: s.Index,
		Title: s.Index.Label(),
		VMin:  vmin,
		VMax:  vmax,
	}
	for _, c := range s.Categories() {
		if vmin != nil && vmax != nil && *vmin <= *vmax {
			if c.Max != nil && *c.Max <= *vmin {
				continue
			}
			if c.Min != nil && *c.Min > *vmax {
				continue
			}
		}
		lg.Entries = append(lg.Entries, LegendEntry{Label: rangeLabel(c), Color: c.Color})
	}
	return lg
}

func rangeLabel(c Category) string {
	switch {
	case c.Min == nil && c.Max != nil:
		return c.Name + " (< " + formatValue(*c.Max) + ")"
	case c.Min != nil && c.Max == nil:
		return c.Name + " (≥ " + formatValue(*c.Min) + ")"
	case c.Min != nil && c.Max != nil:
		return c.Name + " (" + formatValue(*c.Min) + " to " + formatValue(*c.Max) + ")"
	default:
		return c.Name
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// Set holds the scale of every index, with configured thresholds applied.
type Set map[types.Index]Scale

// NewSet builds the scales for all known indexes. overrides maps an index
// name to its category boundaries.
func NewSet(overrides map[string][]float64) (Set, error) {
	set := make(Set)
	for _, index := range []types.Index{types.IndexPOF, types.IndexFOPI} {
		s, err := Default(index)
		if err != nil {
			return nil, err
		}
		set[index] = s
	}
	for name, th := range overrides {
		index, err := types.ParseIndex(name)
		if err != nil {
			return nil, err
		}
		s, err := set[index].WithThresholds(th)
		if err != nil {
			return nil, err
		}
		set[index] = s
	}
	return set, nil
}

// Scale returns the scale for index.
func (s Set) Scale(index types.Index) (Scale, error) {
	if sc, ok := s[index]; ok {
		return sc, nil
	}
	return Default(index)
}
