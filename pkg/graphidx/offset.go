// Package graphidx builds and queries the CSR (Compressed Sparse Row) index
// that every later stage — witness search, contraction, bidirectional query
// — walks to find a node's incoming and outgoing edges.
//
// Edges are stored once, sorted by source. UpOffset gives, per node, the
// range of edges leaving it directly. DownOffset/DownIndex give the range
// of edges arriving at it, indirected through DownIndex since the edge list
// itself is only sorted one way.
package graphidx

import (
	"sort"

	"chrouter/pkg/model"
)

// FillOffset builds a prefix-sum offset array over ids (e.g. edge source or
// target node indices): offset[i]..offset[i+1] is the count of ids equal to
// i, accumulated into a running start position.
func FillOffset(ids []uint32, numNodes uint32) []uint32 {
	offset := make([]uint32, numNodes+1)
	for _, id := range ids {
		offset[id+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		offset[i] += offset[i-1]
	}
	return offset
}

// GenerateOffsetsUnstable builds the up/down CSR arrays over edges in their
// given order, which must list sources in ascending order with each
// source's edges contiguous. Skipping the sort is a fast path for callers —
// such as the contractor's finalization, which orders edges by (source,
// target rank descending) — that maintain that order themselves.
func GenerateOffsetsUnstable(edges []model.Edge, numNodes uint32) (upOffset, downOffset, downIndex []uint32) {
	sources := make([]uint32, len(edges))
	targets := make([]uint32, len(edges))
	for i, e := range edges {
		sources[i] = e.Source
		targets[i] = e.Target
	}

	upOffset = FillOffset(sources, numNodes)
	downOffset = FillOffset(targets, numNodes)

	downIndex = make([]uint32, len(edges))
	cursor := make([]uint32, numNodes)
	copy(cursor, downOffset[:numNodes])
	for i, e := range edges {
		downIndex[cursor[e.Target]] = uint32(i)
		cursor[e.Target]++
	}

	return upOffset, downOffset, downIndex
}

// GenerateOffsets sorts edges by the canonical edge order and then builds
// the CSR arrays over the sorted slice.
func GenerateOffsets(edges []model.Edge, numNodes uint32) (upOffset, downOffset, downIndex []uint32) {
	sort.Slice(edges, func(i, j int) bool { return model.Less(edges[i], edges[j]) })
	return GenerateOffsetsUnstable(edges, numNodes)
}
