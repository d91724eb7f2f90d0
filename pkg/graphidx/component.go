package graphidx

import "chrouter/pkg/model"

// unionFind is a disjoint-set structure with path halving and union by rank,
// used to find the largest weakly-connected component of a parsed road
// network before contraction runs on it.
type unionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

func newUnionFind(n uint32) *unionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range parent {
		parent[i] = uint32(i)
		size[i] = 1
	}
	return &unionFind{parent: parent, rank: make([]byte, n), size: size}
}

func (uf *unionFind) find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y uint32) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
}

// LargestComponent returns the node indices belonging to the largest weakly
// connected component (edges treated as undirected). Contracting a graph
// with many disconnected slivers wastes preprocessing time building a core
// for each of them, so this is run before contraction on real extracts.
func LargestComponent(numNodes uint32, edges []model.Edge) []uint32 {
	if numNodes == 0 {
		return nil
	}
	uf := newUnionFind(numNodes)
	for _, e := range edges {
		uf.union(e.Source, e.Target)
	}

	bestRoot, bestSize := uint32(0), uint32(0)
	for i := uint32(0); i < numNodes; i++ {
		if root := uf.find(i); uf.size[root] > bestSize {
			bestRoot, bestSize = root, uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := uint32(0); i < numNodes; i++ {
		if uf.find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent rebuilds the node list and edge list restricted to the
// given set of old node indices, remapping indices to a compact range.
func FilterToComponent(nodes []model.Node, edges []model.Edge, keep []uint32) ([]model.Node, []model.Edge) {
	oldToNew := make(map[uint32]uint32, len(keep))
	for newIdx, oldIdx := range keep {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	newNodes := make([]model.Node, len(keep))
	for newIdx, oldIdx := range keep {
		newNodes[newIdx] = nodes[oldIdx]
	}

	newEdges := make([]model.Edge, 0, len(edges))
	for _, e := range edges {
		newSource, okS := oldToNew[e.Source]
		newTarget, okT := oldToNew[e.Target]
		if okS && okT {
			ne := model.NewEdge(newSource, newTarget, e.Weight)
			newEdges = append(newEdges, ne)
		}
	}
	return newNodes, newEdges
}
