package graphidx

import "chrouter/pkg/model"

// UpEdgeIDs returns the ids of edges leaving node directly.
func UpEdgeIDs(node uint32, upOffset []uint32) []uint32 {
	start, end := upOffset[node], upOffset[node+1]
	ids := make([]uint32, end-start)
	for i := range ids {
		ids[i] = start + uint32(i)
	}
	return ids
}

// DownEdgeIDs returns the ids of edges arriving at node.
func DownEdgeIDs(node uint32, downOffset, downIndex []uint32) []uint32 {
	start, end := downOffset[node], downOffset[node+1]
	ids := make([]uint32, end-start)
	copy(ids, downIndex[start:end])
	return ids
}

// AllEdgeIDs returns every edge touching node, outgoing first then incoming.
func AllEdgeIDs(node uint32, upOffset, downOffset, downIndex []uint32) []uint32 {
	up := UpEdgeIDs(node, upOffset)
	down := DownEdgeIDs(node, downOffset, downIndex)
	return append(up, down...)
}

// UpNeighbors returns the target nodes of node's outgoing edges, one entry
// per edge (parallel edges repeat a target).
func UpNeighbors(node uint32, edges []model.Edge, upOffset []uint32) []uint32 {
	start, end := upOffset[node], upOffset[node+1]
	out := make([]uint32, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, edges[i].Target)
	}
	return out
}

// DownNeighbors returns the source nodes of node's incoming edges.
func DownNeighbors(node uint32, edges []model.Edge, downOffset, downIndex []uint32) []uint32 {
	ids := DownEdgeIDs(node, downOffset, downIndex)
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = edges[id].Source
	}
	return out
}

// Neighbours returns (upNeighbors, downNeighbors) for node.
func Neighbours(node uint32, edges []model.Edge, upOffset, downOffset, downIndex []uint32) (targets, sources []uint32) {
	return UpNeighbors(node, edges, upOffset), DownNeighbors(node, edges, downOffset, downIndex)
}

// AllNeighbours concatenates upward and downward neighbors of node.
func AllNeighbours(node uint32, edges []model.Edge, upOffset, downOffset, downIndex []uint32) []uint32 {
	targets, sources := Neighbours(node, edges, upOffset, downOffset, downIndex)
	return append(targets, sources...)
}

// NodeDegree is the total number of edges touching node, in either direction.
func NodeDegree(node uint32, upOffset, downOffset []uint32) int {
	return int(upOffset[node+1]-upOffset[node]) + int(downOffset[node+1]-downOffset[node])
}
