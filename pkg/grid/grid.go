// Package grid maps a geographic coordinate to its nearest routable node,
// the spatial index the routing engine needs to turn a user-supplied
// lat/lng into a CH query endpoint.
package grid

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"chrouter/pkg/geo"
	"chrouter/pkg/model"
)

// ErrPointTooFar is returned when the query point has no known node within
// maxSnapDistMeters.
var ErrPointTooFar = errors.New("grid: point too far from any known node")

// maxSnapDistMeters bounds how far a query point may be from the nearest
// indexed node before it's rejected as off the routable network. Node
// density is coarser than edge density, so this is wider than a
// road-segment snap tolerance would be.
const maxSnapDistMeters = 2000.0

// initialSearchDeg is the starting half-width, in degrees, of the bounding
// box searched around a query point; it doubles until a candidate is found
// or the search gives up.
const initialSearchDeg = 0.01

const maxSearchDeg = 8.0

// Index is a nearest-node spatial index backed by an R-tree over node
// coordinates (lon, lat).
type Index struct {
	tree  rtree.RTree
	nodes []model.Node
}

// Build indexes every node's coordinates for nearest-neighbor lookup.
func Build(nodes []model.Node) *Index {
	idx := &Index{nodes: nodes}
	for i, n := range nodes {
		p := [2]float64{n.Lon, n.Lat}
		idx.tree.Insert(p, p, uint32(i))
	}
	return idx
}

// Nearest returns the id of the node closest to (lat, lon), or
// ErrPointTooFar if nothing is within range.
func (idx *Index) Nearest(lat, lon float64) (uint32, error) {
	var best uint32
	bestDist := math.Inf(1)
	found := false

	for radius := initialSearchDeg; radius <= maxSearchDeg; radius *= 2 {
		best, bestDist, found = uint32(0), math.Inf(1), false
		min := [2]float64{lon - radius, lat - radius}
		max := [2]float64{lon + radius, lat + radius}

		idx.tree.Search(min, max, func(_, _ [2]float64, data interface{}) bool {
			nodeID := data.(uint32)
			n := idx.nodes[nodeID]
			// Candidate comparison over a few km at most; the cheap
			// approximation is plenty here.
			d := geo.EquirectangularDist(lat, lon, n.Lat, n.Lon)
			if d < bestDist {
				bestDist, best, found = d, nodeID, true
			}
			return true
		})

		// A hit is only trustworthy once the search box is wider than the
		// candidate's distance — otherwise a closer node just outside the
		// box could still exist.
		boxRadiusMeters := radius * 111_000
		if found && bestDist <= boxRadiusMeters {
			break
		}
	}

	if !found || bestDist > maxSnapDistMeters {
		return 0, ErrPointTooFar
	}
	return best, nil
}
