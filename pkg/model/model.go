// Package model defines the node/edge data model shared by every stage of
// the contraction hierarchies pipeline: the CSR index builder, the witness
// search, the contractor, and the bidirectional query engine.
package model

// NoEdge is the sentinel for "no edge id". Edge ids are otherwise
// always >= 0.
const NoEdge int64 = -1

// InvalidRank marks a node that has not yet been assigned a contraction
// rank.
const InvalidRank uint32 = ^uint32(0)

// Edge is a directed, weighted arc between two nodes. Plain input edges
// carry ContractedPrevious == ContractedNext == NoEdge; shortcuts inserted
// during contraction reference the two edges they replace.
//
// ID is a stable identifier assigned once (at the start of contraction) and
// never reused — shortcuts reference their children by this id, not by
// position, since positions shift every time edges are removed from the
// working set. Finalization rewrites ContractedPrevious/ContractedNext from
// ids to final positions in a single pass.
type Edge struct {
	ID                 int64
	Source             uint32
	Target             uint32
	Weight             uint32
	ContractedPrevious int64
	ContractedNext     int64
}

// NewEdge builds a plain (non-shortcut) edge with no id assigned yet.
func NewEdge(source, target, weight uint32) Edge {
	return Edge{
		ID:                 NoEdge,
		Source:             source,
		Target:             target,
		Weight:             weight,
		ContractedPrevious: NoEdge,
		ContractedNext:     NoEdge,
	}
}

// NewShortcut builds a shortcut edge replacing the edges identified by
// previous and next (stable ids, not positions).
func NewShortcut(source, target, weight uint32, id, previous, next int64) Edge {
	return Edge{
		ID:                 id,
		Source:             source,
		Target:             target,
		Weight:             weight,
		ContractedPrevious: previous,
		ContractedNext:     next,
	}
}

// IsShortcut reports whether the edge was inserted during contraction.
func (e Edge) IsShortcut() bool {
	return e.ContractedPrevious != NoEdge
}

// Less implements the canonical edge ordering used throughout preprocessing:
// (source, target, weight, contracted_previous, contracted_next).
func Less(a, b Edge) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Target != b.Target {
		return a.Target < b.Target
	}
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	if a.ContractedPrevious != b.ContractedPrevious {
		return a.ContractedPrevious < b.ContractedPrevious
	}
	return a.ContractedNext < b.ContractedNext
}

// Node is a routable graph vertex. Rank is assigned during contraction;
// nodes contracted earlier get lower ranks.
type Node struct {
	Lat  float64
	Lon  float64
	Rank uint32
}

// OptimizeBy selects the edge-weight objective used when building the
// routing graph. It is a closed string-backed enum, deliberately avoiding
// dynamic dispatch: preprocessing and queries always know at compile time
// which weight a *Graph was built for.
type OptimizeBy string

const (
	OptimizeByTime     OptimizeBy = "time"
	OptimizeByDistance OptimizeBy = "distance"
)

// TravelType selects which OSM ways are considered traversable.
type TravelType string

const (
	TravelTypeCar               TravelType = "car"
	TravelTypeCarBicycle        TravelType = "car_bicycle"
	TravelTypeBicycle           TravelType = "bicycle"
	TravelTypeBicyclePedestrian TravelType = "bicycle_pedestrian"
	TravelTypePedestrian        TravelType = "pedestrian"
	TravelTypeAll               TravelType = "all"
)
