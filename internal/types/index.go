package types

import (
	"fmt"
	"strings"
)

// Index identifies a fire-risk product served by the backend.
type Index string

const (
	// IndexPOF is the probability-of-fire product.
	IndexPOF Index = "pof"
	// IndexFOPI is the fire occurrence probability index.
	IndexFOPI Index = "fopi"
)

var ErrUnknownIndex = fmt.Errorf("unknown index")

// ParseIndex accepts "pof" or "fopi" in any case.
func ParseIndex(s string) (Index, error) {
	switch Index(strings.ToLower(strings.TrimSpace(s))) {
	case IndexPOF:
		return IndexPOF, nil
	case IndexFOPI:
		return IndexFOPI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIndex, s)
	}
}

func (i Index) String() string {
	return string(i)
}

// Label is the human readable name shown in legends and popups.
func (i Index) Label() string {
	switch i {
	case IndexPOF:
		return "Probability of Fire"
	case IndexFOPI:
		return "Fire Occurrence Probability Index"
	default:
		return strings.ToUpper(string(i))
	}
}
