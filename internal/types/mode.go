package types

import (
	"fmt"
	"strings"
)

// Mode selects how the forecast timeline is anchored.
//
// ByDate anchors the timeline on a calendar date: every forecast time issued
// with that day's run. ByForecast anchors it on a single run and the slider
// walks lead time.
type Mode int

const (
	ByDate Mode = iota + 1
	ByForecast
)

var ErrUnknownMode = fmt.Errorf("unknown mode")

// ParseMode accepts the wire names "by_date" and "by_forecast".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "by_date", "date":
		return ByDate, nil
	case "by_forecast", "forecast":
		return ByForecast, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// String returns the wire name, which is also the step-list endpoint path.
func (m Mode) String() string {
	switch m {
	case ByDate:
		return "by_date"
	case ByForecast:
		return "by_forecast"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	return m == ByDate || m == ByForecast
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
