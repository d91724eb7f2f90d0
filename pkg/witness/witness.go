// Package witness implements the one-to-many label-setting search used to
// decide whether a candidate shortcut is actually needed: if a witness path
// strictly shorter than the shortcut already exists, the shortcut is
// redundant.
//
// A Search is built once per contraction worker and reused across many
// calls. When consecutive calls share the same start node, the visited set
// and heap are not reset — only genuinely new state from that point on is
// added — which is the dominant cost saving during contraction, where a
// single node's incoming edges each trigger a fresh outgoing search from
// the same source.
package witness

import "chrouter/pkg/model"

const (
	maxUint32   = ^uint32(0)
	invalidNode = maxUint32
)

// VisitedList is an epoch-tagged visited set: UnvisitAll is O(1) because it
// just bumps a generation counter instead of rewriting every slot, at the
// cost of one extra comparison per IsVisited/SetVisited.
type VisitedList struct {
	flags []uint32
	epoch uint32
}

// NewVisitedList allocates a visited set over numNodes nodes.
func NewVisitedList(numNodes uint32) *VisitedList {
	return &VisitedList{flags: make([]uint32, numNodes), epoch: 1}
}

// IsVisited reports whether node was visited since the last UnvisitAll.
func (v *VisitedList) IsVisited(node uint32) bool { return v.flags[node] == v.epoch }

// SetVisited marks node as visited for the current epoch.
func (v *VisitedList) SetVisited(node uint32) { v.flags[node] = v.epoch }

// UnvisitAll clears every node's visited flag.
func (v *VisitedList) UnvisitAll() {
	if v.epoch == maxUint32 {
		for i := range v.flags {
			v.flags[i] = 0
		}
		v.epoch = 1
		return
	}
	v.epoch++
}

// heapItem is a min-heap entry ordered by weight.
type heapItem struct {
	node   uint32
	weight uint32
}

// minHeap is a concrete binary min-heap using the hole-sift technique: the
// floating item is held aside and written once, instead of swapped at every
// level.
type minHeap struct {
	items []heapItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(node, weight uint32) {
	h.items = append(h.items, heapItem{node, weight})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Pop() heapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

func (h *minHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.weight >= h.items[parent].weight {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].weight < h.items[child].weight {
			child = right
		}
		if item.weight <= h.items[child].weight {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

func (h *minHeap) Reset() { h.items = h.items[:0] }

// Search is a reusable one-to-many Dijkstra search over the up-CSR index.
// visited tracks settled nodes; reachable tracks nodes ever enqueued, which
// is what marks a dist/pred slot as belonging to the current search rather
// than a stale one.
type Search struct {
	dist      []uint32
	pred      []uint32
	visited   *VisitedList
	reachable *VisitedList
	heap      minHeap
	avoidNode uint32
	maxWeight uint32
	startNode uint32
}

// NewSearch allocates search state over numNodes nodes.
func NewSearch(numNodes uint32) *Search {
	dist := make([]uint32, numNodes)
	pred := make([]uint32, numNodes)
	for i := range dist {
		dist[i] = maxUint32
		pred[i] = invalidNode
	}
	return &Search{
		dist:      dist,
		pred:      pred,
		visited:   NewVisitedList(numNodes),
		reachable: NewVisitedList(numNodes),
		avoidNode: invalidNode,
		maxWeight: maxUint32,
		startNode: invalidNode,
	}
}

// AvoidNode excludes node from the searched graph. Calling it forces the
// next FindPath to start a fresh search even if the start node repeats.
func (s *Search) AvoidNode(node uint32) {
	s.avoidNode = node
	s.startNode = invalidNode
}

// SetMaxWeight bounds the search: any path exceeding it is abandoned.
func (s *Search) SetMaxWeight(weight uint32) { s.maxWeight = weight }

// FindPath returns the shortest path from start to end over the up-CSR
// index (upOffset, edges), or ok == false if no path within MaxWeight
// exists. Consecutive calls with the same start node reuse search state.
func (s *Search) FindPath(start, end uint32, upOffset []uint32, edges []model.Edge) (path []uint32, weight uint32, ok bool) {
	if start == end {
		return []uint32{start}, 0, true
	}

	if start != s.startNode {
		s.heap.Reset()
		s.visited.UnvisitAll()
		s.reachable.UnvisitAll()
		s.dist[start] = 0
		s.pred[start] = invalidNode
		s.reachable.SetVisited(start)
		s.heap.Push(start, 0)
		s.startNode = start
	} else if s.visited.IsVisited(end) {
		// Settled distances are non-decreasing, so an already-settled end
		// holds its optimal distance; no need to resume the loop.
		return s.resolvePath(end)
	}

	for s.heap.Len() > 0 {
		cur := s.heap.Pop()
		if s.visited.IsVisited(cur.node) {
			continue
		}

		for e := upOffset[cur.node]; e < upOffset[cur.node+1]; e++ {
			edge := edges[e]
			if edge.Target == s.avoidNode {
				continue
			}
			next := cur.weight + edge.Weight
			if !s.reachable.IsVisited(edge.Target) || next < s.dist[edge.Target] {
				s.dist[edge.Target] = next
				s.pred[edge.Target] = cur.node
				s.reachable.SetVisited(edge.Target)
				s.heap.Push(edge.Target, next)
			}
		}
		s.visited.SetVisited(cur.node)

		if cur.node == end {
			break
		}
		if cur.weight >= s.maxWeight {
			break
		}
	}

	return s.resolvePath(end)
}

func (s *Search) resolvePath(end uint32) ([]uint32, uint32, bool) {
	weight := s.dist[end]
	if !s.visited.IsVisited(end) || weight > s.maxWeight {
		return nil, 0, false
	}
	path := []uint32{end}
	cur := end
	for s.pred[cur] != invalidNode {
		cur = s.pred[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, weight, true
}
