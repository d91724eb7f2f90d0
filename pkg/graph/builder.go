// Package graph turns a parsed OSM extract into the compact node/edge
// arrays the contraction hierarchies pipeline operates on, and serializes
// the finished index to and from disk.
package graph

import (
	"sort"

	"github.com/paulmach/osm"

	"chrouter/pkg/model"
	osmparser "chrouter/pkg/osm"
)

// Build compacts a parsed OSM extract's sparse osm.NodeID space into a dense
// [0, numNodes) id space and returns the resulting node/edge arrays.
func Build(result *osmparser.ParseResult) ([]model.Node, []model.Edge) {
	edges := result.Edges
	if len(edges) == 0 {
		return nil, nil
	}

	nodeSet := make(map[osm.NodeID]uint32)
	var nodeIDs []osm.NodeID

	addNode := func(id osm.NodeID) uint32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := uint32(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}

	for i := range edges {
		addNode(edges[i].FromNodeID)
		addNode(edges[i].ToNodeID)
	}

	compact := make([]model.Edge, len(edges))
	for i, e := range edges {
		compact[i] = model.NewEdge(nodeSet[e.FromNodeID], nodeSet[e.ToNodeID], e.Weight)
	}
	sort.Slice(compact, func(i, j int) bool { return model.Less(compact[i], compact[j]) })

	nodes := make([]model.Node, len(nodeIDs))
	for id, idx := range nodeSet {
		nodes[idx] = model.Node{
			Lat:  result.NodeLat[id],
			Lon:  result.NodeLon[id],
			Rank: model.InvalidRank,
		}
	}

	return nodes, compact
}
