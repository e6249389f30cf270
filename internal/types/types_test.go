package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"by_date", ByDate, false},
		{"BY_FORECAST", ByForecast, false},
		{" date ", ByDate, false},
		{"forecast", ByForecast, false},
		{"", 0, true},
		{"hourly", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMode) {
					t.Fatalf("ParseMode(%q) error = %v, want ErrUnknownMode", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIndex(t *testing.T) {
	if got, err := ParseIndex("POF"); err != nil || got != IndexPOF {
		t.Errorf("ParseIndex(POF) = %v, %v", got, err)
	}
	if got, err := ParseIndex("fopi"); err != nil || got != IndexFOPI {
		t.Errorf("ParseIndex(fopi) = %v, %v", got, err)
	}
	if _, err := ParseIndex("fwi"); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("ParseIndex(fwi) error = %v, want ErrUnknownIndex", err)
	}
}

func TestSelection_JSONUsesWireModeName(t *testing.T) {
	sel := Selection{
		Index:        IndexPOF,
		Mode:         ByForecast,
		BaseTime:     time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC),
		ForecastTime: time.Date(2025, 7, 21, 9, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(sel)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Mode != "by_forecast" {
		t.Errorf("mode = %q, want by_forecast", decoded.Mode)
	}
}

func TestStepList_Contains(t *testing.T) {
	t3 := time.Date(2025, 7, 20, 3, 0, 0, 0, time.UTC)
	list := StepList{Steps: []ForecastStep{{ForecastTime: t3}}}

	if !list.Contains(t3.In(time.FixedZone("CEST", 2*3600))) {
		t.Error("Contains should compare instants, not zones")
	}
	if list.Contains(t3.Add(time.Hour)) {
		t.Error("Contains reported a step that is not listed")
	}
}
