package forecast

import (
	"time"

	"fireview/internal/types"
)

// RemappedLayout is used for the swapped pair sent in by_forecast mode.
const RemappedLayout = "2006-01-02T15:04:05.00Z07:00"

// WireTimes returns the base_time and forecast_time query values for a raster
// or point request. The backend indexes rasters by (day, time of day)
// whichever axis the user is scrubbing, so in ByForecast mode the pair is
// swapped: base_time becomes the forecast's UTC day at midnight and
// forecast_time becomes the run's UTC day at the forecast's clock time.
//
// Overlay and tooltip requests must both go through this function.
func WireTimes(mode types.Mode, baseTime, forecastTime time.Time) (string, string) {
	base := baseTime.UTC()
	fc := forecastTime.UTC()

	if mode != types.ByForecast {
		return base.Format(time.RFC3339), fc.Format(time.RFC3339)
	}

	wireBase := StartOfDayUTC(fc)
	wireForecast := time.Date(base.Year(), base.Month(), base.Day(),
		fc.Hour(), fc.Minute(), fc.Second(), 0, time.UTC)

	return wireBase.Format(RemappedLayout), wireForecast.Format(RemappedLayout)
}

// StartOfDayUTC truncates t to midnight of its UTC calendar day.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NoonUTC returns 12:00 UTC of t's UTC calendar day. Dates held at noon keep
// their calendar day when displayed in any timezone within ±12h.
func NoonUTC(t time.Time) time.Time {
	return StartOfDayUTC(t).Add(12 * time.Hour)
}

// FormatMidnightUTC formats t's UTC day at midnight as RFC3339.
func FormatMidnightUTC(t time.Time) string {
	return StartOfDayUTC(t).Format(time.RFC3339)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return StartOfDayUTC(a).Equal(StartOfDayUTC(b))
}
