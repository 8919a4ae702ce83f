package transit

import (
	"github.com/tidwall/rtree"
	"github.com/twpayne/go-polyline"

	"busboard.hk/internal/models"
	"busboard.hk/internal/utils"
)

// nearbyCandidates is how many index hits are re-ranked by true distance.
// The index orders by planar degrees, which can differ from meters slightly.
const nearbyCandidates = 4

// StopIndex answers nearest-stop queries over one resolved route.
type StopIndex struct {
	stops  []models.StopInfo
	tree   rtree.RTreeG[int]
	extent utils.CoordinateBounds
}

// NearestStop is a query result. Position is 1-based along the route.
type NearestStop struct {
	Stop     models.StopInfo `json:"stop"`
	Position int             `json:"position"`
	Meters   float64         `json:"distance_meters"`
}

// NewStopIndex indexes stops that carry coordinates.
func NewStopIndex(stops []models.StopInfo) *StopIndex {
	idx := &StopIndex{stops: stops}
	for i, st := range stops {
		lat, lon := float64(st.Lat), float64(st.Long)
		if lat == 0 && lon == 0 {
			continue
		}
		pt := [2]float64{lon, lat}
		idx.tree.Insert(pt, pt, i)
		idx.extent = idx.extent.Extend(lat, lon, idx.tree.Len() == 1)
	}
	return idx
}

// Len is the number of indexed stops.
func (idx *StopIndex) Len() int {
	return idx.tree.Len()
}

// Nearest returns the stop closest to (lat, lon). With maxMeters > 0 stops
// further away than that are not considered.
func (idx *StopIndex) Nearest(lat, lon, maxMeters float64) (NearestStop, bool) {
	if idx.tree.Len() == 0 {
		return NearestStop{}, false
	}

	if maxMeters > 0 {
		window := utils.CalculateBounds(lat, lon, maxMeters)
		if utils.IsOutOfBounds(window, idx.extent) {
			return NearestStop{}, false
		}
	}

	var (
		best  NearestStop
		found bool
		seen  int
	)
	pt := [2]float64{lon, lat}
	idx.tree.Nearby(
		rtree.BoxDist[float64, int](pt, pt, nil),
		func(_, _ [2]float64, i int, _ float64) bool {
			st := idx.stops[i]
			d := utils.Distance(lat, lon, float64(st.Lat), float64(st.Long))
			if !found || d < best.Meters || (d == best.Meters && i+1 < best.Position) {
				best = NearestStop{Stop: st, Position: i + 1, Meters: d}
				found = true
			}
			seen++
			return seen < nearbyCandidates
		},
	)

	if !found || (maxMeters > 0 && best.Meters > maxMeters) {
		return NearestStop{}, false
	}
	return best, true
}

// RoutePath encodes the stop coordinates in route order as a Google polyline.
// Stops without coordinates are skipped.
func RoutePath(stops []models.StopInfo) string {
	coords := make([][]float64, 0, len(stops))
	for _, st := range stops {
		lat, lon := float64(st.Lat), float64(st.Long)
		if lat == 0 && lon == 0 {
			continue
		}
		coords = append(coords, []float64{lat, lon})
	}
	if len(coords) == 0 {
		return ""
	}
	return string(polyline.EncodeCoords(coords))
}
