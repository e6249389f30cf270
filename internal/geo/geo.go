// Package geo converts between the geodetic viewport used by the map and the
// EPSG:3857 boxes and extents exchanged with the backend.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fireview/internal/types"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// MaxLatitude is the web-mercator latitude limit. Latitudes beyond it are
// clamped before projecting.
const MaxLatitude = 85.0511287798

// Bounds is a geodetic rectangle given by its south-west and north-east corners.
type Bounds struct {
	SouthWest types.Coords `json:"south_west"`
	NorthEast types.Coords `json:"north_east"`
}

// BBox3857 is a projected bounding box in meters. It is the wire format for
// every spatial filter sent to the server.
type BBox3857 struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Extent3857 is an image extent as returned in the x-extent-3857 header:
// [left, right, bottom, top].
type Extent3857 [4]float64

func (e Extent3857) Left() float64   { return e[0] }
func (e Extent3857) Right() float64  { return e[1] }
func (e Extent3857) Bottom() float64 { return e[2] }
func (e Extent3857) Top() float64    { return e[3] }

// Bounds4326 is [minLon, minLat, maxLon, maxLat] as reported by aggregate
// endpoints. It is for display only and never sent back.
type Bounds4326 [4]float64

// ProjectPoint projects a geodetic coordinate to EPSG:3857.
func ProjectPoint(c types.Coords) orb.Point {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, c.Latitude))
	return project.WGS84.ToMercator(orb.Point{c.Longitude, lat})
}

// UnprojectPoint converts an EPSG:3857 point back to geodetic coordinates.
func UnprojectPoint(p orb.Point) types.Coords {
	g := project.Mercator.ToWGS84(p)
	return types.NewCoords(g.Lat(), g.Lon())
}

// BBoxFromBounds projects both viewport corners.
func BBoxFromBounds(b Bounds) BBox3857 {
	sw := ProjectPoint(b.SouthWest)
	ne := ProjectPoint(b.NorthEast)
	return BBox3857{
		MinX: math.Min(sw.X(), ne.X()),
		MinY: math.Min(sw.Y(), ne.Y()),
		MaxX: math.Max(sw.X(), ne.X()),
		MaxY: math.Max(sw.Y(), ne.Y()),
	}
}

// ToBBoxString returns the "minX,minY,maxX,maxY" string the backend expects
// for the viewport given by its south-west and north-east corners.
func ToBBoxString(southWest, northEast types.Coords) string {
	return BBoxFromBounds(Bounds{SouthWest: southWest, NorthEast: northEast}).String()
}

func (b BBox3857) String() string {
	return joinFloats(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Bound returns the box as an orb.Bound in projected space.
func (b BBox3857) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

// ToOverlayBounds inverse-projects an image extent into the geodetic bounds
// used to place the overlay on the map.
func ToOverlayBounds(e Extent3857) Bounds {
	return Bounds{
		SouthWest: UnprojectPoint(orb.Point{e.Left(), e.Bottom()}),
		NorthEast: UnprojectPoint(orb.Point{e.Right(), e.Top()}),
	}
}

// ToExtent is the inverse of ToOverlayBounds.
func ToExtent(b Bounds) Extent3857 {
	box := BBoxFromBounds(b)
	return Extent3857{box.MinX, box.MaxX, box.MinY, box.MaxY}
}

// ParseBBox parses a "minX,minY,maxX,maxY" string.
func ParseBBox(s string) (BBox3857, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return BBox3857{}, fmt.Errorf("invalid bbox %q: %w", s, err)
	}
	if v[0] > v[2] || v[1] > v[3] {
		return BBox3857{}, fmt.Errorf("invalid bbox %q: min exceeds max", s)
	}
	return BBox3857{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}, nil
}

// ParseExtent parses the x-extent-3857 header value.
func ParseExtent(s string) (Extent3857, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return Extent3857{}, fmt.Errorf("invalid extent %q: %w", s, err)
	}
	return Extent3857{v[0], v[1], v[2], v[3]}, nil
}

// ParseBounds4326 accepts the four-element slice decoded from a JSON payload.
func ParseBounds4326(v []float64) (Bounds4326, bool) {
	if len(v) != 4 {
		return Bounds4326{}, false
	}
	return Bounds4326{v[0], v[1], v[2], v[3]}, true
}

func (b Bounds4326) String() string {
	return fmt.Sprintf("[%.4f, %.4f, %.4f, %.4f]", b[0], b[1], b[2], b[3])
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "[]"), ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("value %d is not finite", i)
		}
		out[i] = f
	}
	return out, nil
}

func joinFloats(vals ...float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
