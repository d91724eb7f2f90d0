package query

import (
	"math"
	"testing"

	"chrouter/pkg/ch"
	"chrouter/pkg/graphidx"
	"chrouter/pkg/model"
)

// buildTwoChainsGraph is the "two-parallel-chains" fixture used throughout the
// preprocessing test suite:
//
//	      7 -> 8 -> 9
//	      |         |
//	 0 -> 5 -> 6 -  |
//	 |         |  \ |
//	 1 -> 2 -> 3 -> 4
func buildTwoChainsGraph() ([]model.Node, []model.Edge) {
	nodes := make([]model.Node, 10)
	for i := range nodes {
		nodes[i] = model.Node{Rank: model.InvalidRank}
	}
	raw := []struct{ s, t, w uint32 }{
		{0, 1, 1}, {1, 2, 1}, {2, 3, 1}, {3, 4, 20},
		{0, 5, 5}, {5, 6, 1}, {6, 4, 20}, {6, 3, 20},
		{5, 7, 5}, {7, 8, 1}, {8, 9, 1}, {9, 4, 1},
	}
	edges := make([]model.Edge, len(raw))
	for i, r := range raw {
		edges[i] = model.NewEdge(r.s, r.t, r.w)
	}
	return nodes, edges
}

func buildEngine(t *testing.T, nodes []model.Node, edges []model.Edge) *Engine {
	t.Helper()
	result := ch.Contract(nodes, edges, ch.Options{Workers: 2})
	return NewEngine(result.Nodes, result.Edges, result.UpOffset, result.DownOffset, result.DownIndex)
}

func roundedCost(cost float32) int {
	return int(math.Round(float64(cost) * model.DistMultiplicator))
}

// End-to-end: CH-contracting the graph and querying 0->4 must return
// cost 13 over the fully expanded node sequence [0,5,7,8,9,4].
func TestFindPath_TwoParallelChains(t *testing.T) {
	nodes, edges := buildTwoChainsGraph()
	engine := buildEngine(t, nodes, edges)

	path, cost, err := engine.FindPath(0, 4)
	if err != nil {
		t.Fatalf("FindPath(0,4): %v", err)
	}
	if got := roundedCost(cost); got != 13 {
		t.Fatalf("expected cost 13, got %d", got)
	}
	want := []uint32{0, 5, 7, 8, 9, 4}
	if len(path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, path)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, path)
		}
	}
}

func TestFindPath_SameNode(t *testing.T) {
	nodes, edges := buildTwoChainsGraph()
	engine := buildEngine(t, nodes, edges)

	path, cost, err := engine.FindPath(4, 4)
	if err != nil {
		t.Fatalf("FindPath(4,4): %v", err)
	}
	if len(path) != 0 {
		t.Fatalf("expected empty path for start==end, got %v", path)
	}
	if cost != 0 {
		t.Fatalf("expected zero cost for start==end, got %v", cost)
	}
}

func TestFindPath_Unreachable(t *testing.T) {
	nodes, edges := buildTwoChainsGraph()
	engine := buildEngine(t, nodes, edges)

	if _, _, err := engine.FindPath(4, 0); err != ErrNoPath {
		t.Fatalf("expected ErrNoPath for 4->0, got %v", err)
	}
}

// referenceDijkstra is a plain (non-CH) Dijkstra over the ORIGINAL edge
// list, used as a ground truth to check that contraction preserves
// distances.
func referenceDijkstra(numNodes uint32, edges []model.Edge, start, end uint32) (uint32, bool) {
	edges = append([]model.Edge(nil), edges...)
	up, _, _ := graphidx.GenerateOffsets(edges, numNodes)
	dist := make([]uint32, numNodes)
	visited := make([]bool, numNodes)
	for i := range dist {
		dist[i] = math.MaxUint32
	}
	dist[start] = 0
	for {
		u, best := uint32(0), uint32(math.MaxUint32)
		found := false
		for v := uint32(0); v < numNodes; v++ {
			if !visited[v] && dist[v] < best {
				u, best, found = v, dist[v], true
			}
		}
		if !found {
			break
		}
		visited[u] = true
		if u == end {
			break
		}
		for pos := up[u]; pos < up[u+1]; pos++ {
			e := edges[pos]
			if next := dist[u] + e.Weight; next < dist[e.Target] {
				dist[e.Target] = next
			}
		}
	}
	if dist[end] == math.MaxUint32 {
		return 0, false
	}
	return dist[end], true
}

// The bidirectional query must match a reference non-CH Dijkstra for every
// reachable pair.
func TestFindPath_MatchesReferenceDijkstra(t *testing.T) {
	_, originalEdges := buildTwoChainsGraph()
	nodes, edges := buildTwoChainsGraph()
	engine := buildEngine(t, nodes, edges)

	for s := uint32(0); s < 10; s++ {
		for e := uint32(0); e < 10; e++ {
			if s == e {
				continue
			}
			wantWeight, reachable := referenceDijkstra(10, originalEdges, s, e)
			_, cost, err := engine.FindPath(s, e)
			if !reachable {
				if err != ErrNoPath {
					t.Errorf("(%d,%d): expected unreachable, engine returned cost %v", s, e, cost)
				}
				continue
			}
			if err != nil {
				t.Errorf("(%d,%d): expected cost %d, engine returned error %v", s, e, wantWeight, err)
				continue
			}
			if got := roundedCost(cost); uint32(got) != wantWeight {
				t.Errorf("(%d,%d): expected cost %d, got %d", s, e, wantWeight, got)
			}
		}
	}
}

// Disabling stall-on-demand must not change the returned cost, only the
// work done to compute it.
func TestFindPath_StallOnDemandDoesNotChangeCost(t *testing.T) {
	nodes, edges := buildTwoChainsGraph()
	result := ch.Contract(nodes, edges, ch.Options{Workers: 2})

	withStall := NewEngine(result.Nodes, result.Edges, result.UpOffset, result.DownOffset, result.DownIndex)
	withoutStall := NewEngine(result.Nodes, result.Edges, result.UpOffset, result.DownOffset, result.DownIndex)
	withoutStall.StallOnDemand = false

	for s := uint32(0); s < 10; s++ {
		for e := uint32(0); e < 10; e++ {
			if s == e {
				continue
			}
			_, costA, errA := withStall.FindPath(s, e)
			_, costB, errB := withoutStall.FindPath(s, e)
			if (errA == nil) != (errB == nil) {
				t.Fatalf("(%d,%d): stall/no-stall disagree on reachability: %v vs %v", s, e, errA, errB)
			}
			if errA == nil && costA != costB {
				t.Fatalf("(%d,%d): stall-on-demand changed cost: %v vs %v", s, e, costA, costB)
			}
		}
	}
}
