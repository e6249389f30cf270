package palette

import (
	"errors"
	"math"
	"testing"

	"fireview/internal/types"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		index types.Index
		value float64
		want  string
	}{
		{types.IndexPOF, 0, "Very low"},
		{types.IndexPOF, 0.002, "Low"},
		{types.IndexPOF, 0.0049, "Low"},
		{types.IndexPOF, 0.03, "Very high"},
		{types.IndexPOF, 0.5, "Extreme"},
		{types.IndexFOPI, 0.1, "Very low"},
		{types.IndexFOPI, 0.6, "High"},
		{types.IndexFOPI, 0.95, "Extreme"},
		{types.IndexFOPI, math.NaN(), "No data"},
	}

	for _, tt := range tests {
		t.Run(string(tt.index), func(t *testing.T) {
			s, err := Default(tt.index)
			if err != nil {
				t.Fatalf("Default: %v", err)
			}
			if got := s.Classify(tt.value).Name; got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestDefaultUnknownIndex(t *testing.T) {
	_, err := Default(types.Index("fwi"))
	if !errors.Is(err, types.ErrUnknownIndex) {
		t.Errorf("err = %v, want ErrUnknownIndex", err)
	}
}

func TestWithThresholds(t *testing.T) {
	s, _ := Default(types.IndexFOPI)

	custom, err := s.WithThresholds([]float64{0.1, 0.2, 0.3, 0.4, 0.5})
	if err != nil {
		t.Fatalf("WithThresholds: %v", err)
	}
	if got := custom.Classify(0.45).Name; got != "Very high" {
		t.Errorf("Classify = %q", got)
	}
	if got := s.Classify(0.45).Name; got != "Moderate" {
		t.Errorf("original scale changed: %q", got)
	}

	bad := [][]float64{
		{0.1, 0.2},
		{0.5, 0.4, 0.3, 0.2, 0.1},
		{0.1, 0.1, 0.2, 0.3, 0.4},
	}
	for _, th := range bad {
		if _, err := s.WithThresholds(th); !errors.Is(err, ErrBadThresholds) {
			t.Errorf("WithThresholds(%v) err = %v", th, err)
		}
	}
}

func TestLegend(t *testing.T) {
	s, _ := Default(types.IndexFOPI)

	full := s.Legend(nil, nil)
	if full.Title != "Fire Occurrence Probability Index" {
		t.Errorf("Title = %q", full.Title)
	}
	if len(full.Entries) != 6 {
		t.Fatalf("entries = %d, want 6", len(full.Entries))
	}
	if full.Entries[0].Label != "Very low (< 0.2)" || full.Entries[5].Label != "Extreme (≥ 0.9)" {
		t.Errorf("labels = %q .. %q", full.Entries[0].Label, full.Entries[5].Label)
	}

	lo, hi := 0.3, 0.65
	clipped := s.Legend(&lo, &hi)
	var names []string
	for _, e := range clipped.Entries {
		names = append(names, e.Label)
	}
	want := []string{"Low (0.2 to 0.4)", "Moderate (0.4 to 0.6)", "High (0.6 to 0.8)"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("clipped legend mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSet(t *testing.T) {
	set, err := NewSet(map[string][]float64{"POF": {0.01, 0.02, 0.03, 0.04, 0.05}})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	pof, err := set.Scale(types.IndexPOF)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if got := pof.Classify(0.025).Name; got != "Moderate" {
		t.Errorf("override not applied: %q", got)
	}
	fopi, _ := set.Scale(types.IndexFOPI)
	if diff := cmp.Diff([]float64{0.2, 0.4, 0.6, 0.8, 0.9}, fopi.Thresholds); diff != "" {
		t.Errorf("fopi thresholds changed (-want +got):\n%s", diff)
	}

	if _, err := NewSet(map[string][]float64{"fwi": {1, 2, 3, 4, 5}}); !errors.Is(err, types.ErrUnknownIndex) {
		t.Errorf("unknown index err = %v", err)
	}
	if _, err := NewSet(map[string][]float64{"fopi": {1}}); !errors.Is(err, ErrBadThresholds) {
		t.Errorf("bad thresholds err = %v", err)
	}
}
