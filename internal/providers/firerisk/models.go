package firerisk

import (
	"time"

	"fireview/internal/geo"
)

// API Docs: the backend serves one tree per index under /api/{index}.
// Sample request: /api/pof/heatmap/image?base_time=2025-07-20T00:00:00Z&forecast_time=2025-07-20T03:00:00Z&bbox=...

type AvailableDatesAPIResponse struct {
	AvailableDates []string `json:"available_dates"`
}

type LatestDateAPIResponse struct {
	LatestDate string `json:"latest_date"`
}

type StepsAPIResponse struct {
	BaseTime     string   `json:"base_time,omitempty"`
	ForecastTime []string `json:"forecast_time"`
}

// HeatmapImage is a rendered raster for one (base_time, forecast_time, bbox).
type HeatmapImage struct {
	Blob        []byte
	ContentType string
	Extent      geo.Extent3857
	VMin        *float64
	VMax        *float64
}

type TooltipAPIResponse struct {
	Index string  `json:"index"`
	Param string  `json:"param"`
	Value *float64 `json:"value"` // null on no-data cells
	Point struct {
		Lon         float64 `json:"lon"`
		Lat         float64 `json:"lat"`
		GridLon     float64 `json:"grid_lon"`
		GridLat     float64 `json:"grid_lat"`
		DistanceKm  float64 `json:"distance_km"`
		CellIndexX  int     `json:"x_index"`
		CellIndexY  int     `json:"y_index"`
		Resolution  float64 `json:"resolution_deg"`
		IsNoData    bool    `json:"is_nodata"`
		Description string  `json:"description"`
	} `json:"point"`
	Time struct {
		BaseTime     string `json:"base_time"`
		ForecastTime string `json:"forecast_time"`
	} `json:"time"`
}

// AggregateFilter narrows the aggregate endpoints. Zero values are omitted.
type AggregateFilter struct {
	BBox  string
	Start time.Time
	End   time.Time
}

type TimeSeriesAPIResponse struct {
	Index    string            `json:"index"`
	BBox4326 []float64         `json:"bbox_epsg4326,omitempty"`
	Series   []TimeSeriesPoint `json:"series"`
}

type TimeSeriesPoint struct {
	BaseTime string   `json:"base_time"`
	Mean     *float64 `json:"mean"`
	Median   *float64 `json:"median"`
}

type ExpectedFiresAPIResponse struct {
	Index    string              `json:"index"`
	BBox4326 []float64           `json:"bbox_epsg4326,omitempty"`
	Series   []ExpectedFiresPoint `json:"series"`
}

type ExpectedFiresPoint struct {
	Date          string  `json:"date"`
	ExpectedFires float64 `json:"expected_fires"`
}

type ExceedanceAPIResponse struct {
	Index      string            `json:"index"`
	BBox4326   []float64         `json:"bbox_epsg4326,omitempty"`
	Thresholds []float64         `json:"thresholds"`
	Pooled     []ExceedanceEntry `json:"pooled"`
	PerDay     []ExceedanceDay   `json:"per_day"`
}

type ExceedanceEntry struct {
	Threshold float64 `json:"threshold"`
	Frequency float64 `json:"frequency"`
	Count     int     `json:"count"`
}

type ExceedanceDay struct {
	Date    string            `json:"date"`
	Entries []ExceedanceEntry `json:"entries"`
}

type DifferenceMapAPIResponse struct {
	Index         string       `json:"index"`
	BaseTimeStart string       `json:"base_time_start"`
	BaseTimeEnd   string       `json:"base_time_end"`
	BBox4326      []float64    `json:"bbox_epsg4326,omitempty"`
	Lats          []float64    `json:"lats"`
	Lons          []float64    `json:"lons"`
	Delta         [][]*float64 `json:"delta"`
}

type ForecastHorizonAPIResponse struct {
	Index    string         `json:"index"`
	BBox4326 []float64      `json:"bbox_epsg4326,omitempty"`
	Horizon  []HorizonEntry `json:"horizon"`
}

type HorizonEntry struct {
	LeadTimeHours int      `json:"lead_time_hours"`
	BaseTime      string   `json:"base_time"`
	ForecastTime  string   `json:"forecast_time"`
	Mean          *float64 `json:"mean"`
}
