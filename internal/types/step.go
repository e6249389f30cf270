package types

import "time"

// ForecastStep is one forecast valid time anchored to a model run.
type ForecastStep struct {
	BaseTime     time.Time `json:"base_time"`
	ForecastTime time.Time `json:"forecast_time"`
}

// StepList is the normalized answer of a step-list request. Steps are sorted
// ascending by ForecastTime and unique on it.
type StepList struct {
	BaseTime            time.Time      `json:"base_time"`
	Steps               []ForecastStep `json:"steps"`
	InitialForecastTime time.Time      `json:"initial_forecast_time"`
}

// Contains reports whether forecastTime is one of the listed steps.
func (l StepList) Contains(forecastTime time.Time) bool {
	for _, s := range l.Steps {
		if s.ForecastTime.Equal(forecastTime) {
			return true
		}
	}
	return false
}

// Selection is the (base_time, forecast_time) pair currently displayed.
type Selection struct {
	Index        Index     `json:"index"`
	Mode         Mode      `json:"mode"`
	BaseTime     time.Time `json:"base_time"`
	ForecastTime time.Time `json:"forecast_time"`
}

// Equal compares selections by instant rather than by location pointer.
func (s Selection) Equal(o Selection) bool {
	return s.Index == o.Index && s.Mode == o.Mode &&
		s.BaseTime.Equal(o.BaseTime) && s.ForecastTime.Equal(o.ForecastTime)
}
