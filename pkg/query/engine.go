// Package query implements the bidirectional stall-on-demand Dijkstra that
// answers shortest-path queries against a contracted, rank-augmented graph.
package query

import (
	"errors"
	"math"

	"chrouter/pkg/model"
)

// ErrNoPath is returned when the two search frontiers provably cannot meet.
var ErrNoPath = errors.New("query: no path between the given nodes")

const invalidNode = ^uint32(0)

// Engine is a reusable bidirectional CH query. One Engine is meant to be
// allocated per HTTP worker and reused across sequential requests handled
// by that worker: Reset is O(1) amortized via epoch flags, and there is no
// shared mutable state between engines.
type Engine struct {
	nodes []model.Node
	edges []model.Edge

	upOffset, downOffset, downIndex []uint32

	distUp, distDown []uint32
	predUp, predDown []int64

	reachableUp, reachableDown *epochSet
	visitedUp, visitedDown     *epochSet

	heapUp, heapDown minHeap

	// StallOnDemand disables the pruning optimization when false, which
	// must not change the returned cost, only the work done to compute
	// it. Defaults to true.
	StallOnDemand bool
}

// NewEngine builds a query engine over a finalized, ranked CH graph.
func NewEngine(nodes []model.Node, edges []model.Edge, upOffset, downOffset, downIndex []uint32) *Engine {
	n := uint32(len(nodes))
	dist := func() []uint32 {
		d := make([]uint32, n)
		for i := range d {
			d[i] = math.MaxUint32
		}
		return d
	}
	pred := func() []int64 {
		p := make([]int64, n)
		for i := range p {
			p[i] = model.NoEdge
		}
		return p
	}
	return &Engine{
		nodes:         nodes,
		edges:         edges,
		upOffset:      upOffset,
		downOffset:    downOffset,
		downIndex:     downIndex,
		distUp:        dist(),
		distDown:      dist(),
		predUp:        pred(),
		predDown:      pred(),
		reachableUp:   newEpochSet(n),
		reachableDown: newEpochSet(n),
		visitedUp:     newEpochSet(n),
		visitedDown:   newEpochSet(n),
		StallOnDemand: true,
	}
}

// FindPath returns the fully expanded node sequence and the cost (in
// kilometers or hours, depending on how the graph was built) of the
// shortest path from start to end, or ErrNoPath if none exists.
func (e *Engine) FindPath(start, end uint32) ([]uint32, float32, error) {
	if start == end {
		return nil, 0, nil
	}

	e.reachableUp.Reset()
	e.reachableDown.Reset()
	e.visitedUp.Reset()
	e.visitedDown.Reset()
	e.heapUp.Reset()
	e.heapDown.Reset()

	e.distUp[start] = 0
	e.predUp[start] = model.NoEdge
	e.reachableUp.Set(start)
	e.heapUp.Push(start, 0)

	e.distDown[end] = 0
	e.predDown[end] = model.NoEdge
	e.reachableDown.Set(end)
	e.heapDown.Push(end, 0)

	bestWeight := uint32(math.MaxUint32)
	meetingNode := invalidNode

	for e.heapUp.Len() > 0 || e.heapDown.Len() > 0 {
		fwdItem, hasFwd := e.heapUp.Peek()
		bwdItem, hasBwd := e.heapDown.Peek()
		fwdMin, bwdMin := uint32(math.MaxUint32), uint32(math.MaxUint32)
		if hasFwd {
			fwdMin = fwdItem.weight
		}
		if hasBwd {
			bwdMin = bwdItem.weight
		}
		if fwdMin >= bestWeight && bwdMin >= bestWeight {
			break
		}

		if hasFwd && fwdMin < bestWeight {
			e.stepForward(&bestWeight, &meetingNode)
		}
		if hasBwd {
			if peek, ok := e.heapDown.Peek(); ok && peek.weight < bestWeight {
				e.stepBackward(&bestWeight, &meetingNode)
			}
		}
	}

	if meetingNode == invalidNode {
		return nil, 0, ErrNoPath
	}

	path := e.reconstruct(meetingNode)
	return path, float32(bestWeight) / float32(model.DistMultiplicator), nil
}

func (e *Engine) stepForward(bestWeight *uint32, meetingNode *uint32) {
	item := e.heapUp.Pop()
	node, d := item.node, item.weight
	if d > e.distUp[node] || e.visitedUp.IsSet(node) {
		return
	}
	e.visitedUp.Set(node)

	if e.reachableDown.IsSet(node) {
		if total := d + e.distDown[node]; total < *bestWeight {
			*bestWeight = total
			*meetingNode = node
		}
	}

	if e.StallOnDemand && e.stalledForward(node, d) {
		return
	}

	nodeRank := e.nodes[node].Rank
	for pos := e.upOffset[node]; pos < e.upOffset[node+1]; pos++ {
		edge := e.edges[pos]
		if e.nodes[edge.Target].Rank <= nodeRank {
			break // edges are sorted by target rank descending: nothing further qualifies
		}
		next := d + edge.Weight
		if !e.reachableUp.IsSet(edge.Target) || next < e.distUp[edge.Target] {
			e.distUp[edge.Target] = next
			e.reachableUp.Set(edge.Target)
			e.predUp[edge.Target] = int64(pos)
			e.heapUp.Push(edge.Target, next)
		}
	}
}

func (e *Engine) stepBackward(bestWeight *uint32, meetingNode *uint32) {
	item := e.heapDown.Pop()
	node, d := item.node, item.weight
	if d > e.distDown[node] || e.visitedDown.IsSet(node) {
		return
	}
	e.visitedDown.Set(node)

	if e.reachableUp.IsSet(node) {
		if total := e.distUp[node] + d; total < *bestWeight {
			*bestWeight = total
			*meetingNode = node
		}
	}

	if e.StallOnDemand && e.stalledBackward(node, d) {
		return
	}

	nodeRank := e.nodes[node].Rank
	for k := e.downOffset[node]; k < e.downOffset[node+1]; k++ {
		pos := e.downIndex[k]
		edge := e.edges[pos]
		u := edge.Source
		if e.nodes[u].Rank <= nodeRank {
			continue // down_index isn't rank-sorted, so no early break here
		}
		next := d + edge.Weight
		if !e.reachableDown.IsSet(u) || next < e.distDown[u] {
			e.distDown[u] = next
			e.reachableDown.Set(u)
			e.predDown[u] = int64(pos)
			e.heapDown.Push(u, next)
		}
	}
}

// stalledForward prunes a forward relaxation from node when a higher-ranked
// neighbor u is already settled forward with a provably better distance:
// any path this node would extend is then dominated by the one through u.
func (e *Engine) stalledForward(node, d uint32) bool {
	nodeRank := e.nodes[node].Rank
	for k := e.downOffset[node]; k < e.downOffset[node+1]; k++ {
		pos := e.downIndex[k]
		edge := e.edges[pos]
		u := edge.Source
		if e.nodes[u].Rank <= nodeRank {
			continue
		}
		if e.visitedUp.IsSet(u) && e.distUp[u]+edge.Weight <= d {
			return true
		}
	}
	return false
}

func (e *Engine) stalledBackward(node, d uint32) bool {
	nodeRank := e.nodes[node].Rank
	for pos := e.upOffset[node]; pos < e.upOffset[node+1]; pos++ {
		edge := e.edges[pos]
		w := edge.Target
		if e.nodes[w].Rank <= nodeRank {
			break
		}
		if e.visitedDown.IsSet(w) && e.distDown[w]+edge.Weight <= d {
			return true
		}
	}
	return false
}

// reconstruct walks the up-side predecessor chain to start and the
// down-side chain to end, recursively expanding any shortcut edge into its
// constituent original edges, and returns the fully expanded node path.
func (e *Engine) reconstruct(meetingNode uint32) []uint32 {
	var fwdEdges []int64
	node := meetingNode
	for e.predUp[node] != model.NoEdge {
		pos := e.predUp[node]
		fwdEdges = append(fwdEdges, pos)
		node = e.edges[pos].Source
	}
	for i, j := 0, len(fwdEdges)-1; i < j; i, j = i+1, j-1 {
		fwdEdges[i], fwdEdges[j] = fwdEdges[j], fwdEdges[i]
	}

	var bwdEdges []int64
	node = meetingNode
	for e.predDown[node] != model.NoEdge {
		pos := e.predDown[node]
		bwdEdges = append(bwdEdges, pos)
		node = e.edges[pos].Target
	}

	path := make([]uint32, 0, len(fwdEdges)+len(bwdEdges)+1)
	for _, pos := range fwdEdges {
		path = append(path, expandSourceOrder(e.edges, pos)...)
	}
	path = append(path, meetingNode)
	for _, pos := range bwdEdges {
		path = append(path, expandTargetOrder(e.edges, pos)...)
	}
	return path
}

// expandSourceOrder recursively expands edge pos, walking source-to-target,
// yielding every leaf (original) edge's source node in path order. Used for
// the up-side half of the path: start, ..., node-just-before-meetingNode.
func expandSourceOrder(edges []model.Edge, pos int64) []uint32 {
	edge := edges[pos]
	if !edge.IsShortcut() {
		return []uint32{edge.Source}
	}
	out := expandSourceOrder(edges, edge.ContractedPrevious)
	return append(out, expandSourceOrder(edges, edge.ContractedNext)...)
}

// expandTargetOrder is the mirror of expandSourceOrder for the down-side
// half of the path: node-just-after-meetingNode, ..., end.
func expandTargetOrder(edges []model.Edge, pos int64) []uint32 {
	edge := edges[pos]
	if !edge.IsShortcut() {
		return []uint32{edge.Target}
	}
	out := expandTargetOrder(edges, edge.ContractedPrevious)
	return append(out, expandTargetOrder(edges, edge.ContractedNext)...)
}
