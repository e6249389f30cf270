package analytics

import (
	"time"

	"fireview/internal/geo"
	"fireview/internal/providers/firerisk"
	"fireview/internal/types"
)

// RangeQuery selects an area and a base-time range.
type RangeQuery struct {
	Index types.Index `validate:"required,oneof=pof fopi"`
	BBox  string
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"`
}

type ExceedanceQuery struct {
	RangeQuery
	Thresholds []float64 `validate:"required,min=1,dive,gte=0"`
}

// DifferenceQuery compares the runs of two base times.
type DifferenceQuery struct {
	Index     types.Index `validate:"required,oneof=pof fopi"`
	BBox      string
	BaseStart time.Time `validate:"required"`
	BaseEnd   time.Time `validate:"required"`
}

type HorizonQuery struct {
	Index types.Index `validate:"required,oneof=pof fopi"`
	BBox  string
}

// DifferenceStats summarises the non-empty cells of a difference map.
type DifferenceStats struct {
	Cells int     `json:"cells"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

type DifferenceMap struct {
	Map     *firerisk.DifferenceMapAPIResponse `json:"map"`
	Stats   DifferenceStats                    `json:"stats"`
	Display string                             `json:"display_bbox,omitempty"`
}

// Summary combines the aggregates of one area and range.
type Summary struct {
	Index         types.Index                          `json:"index"`
	Display       string                               `json:"display_bbox,omitempty"`
	TimeSeries    *firerisk.TimeSeriesAPIResponse      `json:"time_series"`
	ExpectedFires *firerisk.ExpectedFiresAPIResponse   `json:"expected_fires"`
	Exceedance    *firerisk.ExceedanceAPIResponse      `json:"exceedance"`
	Horizon       *firerisk.ForecastHorizonAPIResponse `json:"horizon"`
	PeakMean      *firerisk.TimeSeriesPoint            `json:"peak_mean,omitempty"`
	TotalExpected float64                              `json:"total_expected_fires"`
}

// displayBBox formats a bbox returned by the server for display. It is never
// sent back.
func displayBBox(v []float64) string {
	b, ok := geo.ParseBounds4326(v)
	if !ok {
		return ""
	}
	return b.String()
}
