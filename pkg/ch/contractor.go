package ch

import (
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"chrouter/pkg/graphidx"
	"chrouter/pkg/model"
	"chrouter/pkg/witness"
)

// independentSetQuartileCutoff is the live-node count above which priority
// selection only considers the cheapest quarter of remaining nodes as
// independent-set candidates, instead of all of them.
const independentSetQuartileCutoff = 10_000

// Options configures a contraction run.
type Options struct {
	// Workers is the number of parallel worker goroutines used for the
	// per-round heuristic, shortcut and recompute phases. Defaults to
	// runtime.NumCPU() when <= 0.
	Workers int
}

// Result is the ranked, shortcut-augmented output of Contract, ready to be
// queried by pkg/query.
type Result struct {
	Nodes      []model.Node
	Edges      []model.Edge
	UpOffset   []uint32
	DownOffset []uint32
	DownIndex  []uint32
}

// Contract runs contraction hierarchies preprocessing to completion: it
// assigns every node a rank and returns the final edge set (originals plus
// shortcuts) with CSR offsets built over it. Contract stamps stable ids on
// its own copy of edges and leaves the caller's slice unchanged; nodes is
// updated in place with the assigned ranks and returned as Result.Nodes.
func Contract(nodes []model.Node, edges []model.Edge, opts Options) Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	n := uint32(len(nodes))

	active := make([]model.Edge, len(edges))
	for i, e := range edges {
		e.ID = int64(i)
		active[i] = e
	}
	idCounter := int64(len(active))

	resulting := make([]model.Edge, 0, len(active))
	upOffset, downOffset, downIndex := graphidx.GenerateOffsets(active, n)

	contracted := make([]bool, n)
	heuristic := make([]int64, n)
	deletedNeighbors := make([]uint32, n)

	searches := make([]*witness.Search, workers)
	for i := range searches {
		searches[i] = witness.NewSearch(n)
	}

	allNodes := make([]uint32, n)
	for i := range allNodes {
		allNodes[i] = uint32(i)
	}
	updateHeuristics(allNodes, heuristic, deletedNeighbors, searches, active, upOffset, downOffset, downIndex, workers)

	rank := uint32(0)
	for {
		remaining := make([]uint32, 0, n)
		for i := uint32(0); i < n; i++ {
			if !contracted[i] {
				remaining = append(remaining, i)
			}
		}
		if len(remaining) == 0 {
			break
		}

		oldActive, oldUp, oldDown, oldDownIdx := active, upOffset, downOffset, downIndex

		I := selectIndependentSet(remaining, heuristic, oldActive, oldUp, oldDown, oldDownIdx)
		if len(I) == 0 {
			// The selection rule always leaves at least the global minimum
			// standing; this is a defensive fallback, not an expected path.
			best := remaining[0]
			for _, v := range remaining[1:] {
				if heuristic[v] < heuristic[best] {
					best = v
				}
			}
			I = []uint32{best}
		}

		newShortcuts := computeShortcuts(I, searches, oldActive, oldUp, oldDown, oldDownIdx, workers)

		remainingActive, removed := removeIncident(oldActive, oldUp, oldDown, oldDownIdx, I)
		resulting = append(resulting, removed...)

		materialized := dedupeShortcuts(materializeShortcuts(newShortcuts, &idCounter))
		active = append(remainingActive, materialized...)
		upOffset, downOffset, downIndex = graphidx.GenerateOffsets(active, n)

		for _, v := range I {
			nodes[v].Rank = rank
			contracted[v] = true
		}

		recomputeSet := make(map[uint32]bool)
		for _, v := range I {
			for _, u := range graphidx.AllNeighbours(v, oldActive, oldUp, oldDown, oldDownIdx) {
				deletedNeighbors[u]++
				if !contracted[u] {
					recomputeSet[u] = true
				}
			}
		}
		recomputeNodes := make([]uint32, 0, len(recomputeSet))
		for u := range recomputeSet {
			recomputeNodes = append(recomputeNodes, u)
		}
		sort.Slice(recomputeNodes, func(a, b int) bool { return recomputeNodes[a] < recomputeNodes[b] })
		updateHeuristics(recomputeNodes, heuristic, deletedNeighbors, searches, active, upOffset, downOffset, downIndex, workers)

		rank++
	}

	return finalize(nodes, active, resulting, n)
}

// selectIndependentSet picks a set of pairwise non-adjacent nodes, all at or
// near the current lowest priority, that can be contracted in parallel
// without two workers racing on the same shortcut synthesis.
func selectIndependentSet(remaining []uint32, heuristic []int64, edges []model.Edge, upOffset, downOffset, downIndex []uint32) []uint32 {
	candidates := remaining
	if len(remaining) > independentSetQuartileCutoff {
		sorted := append([]uint32(nil), remaining...)
		sort.Slice(sorted, func(a, b int) bool { return heuristic[sorted[a]] < heuristic[sorted[b]] })
		candidates = append([]uint32(nil), sorted[:len(sorted)/4]...)
	} else {
		candidates = append([]uint32(nil), remaining...)
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a] < candidates[b] })

	index := make(map[uint32]int, len(candidates))
	for i, v := range candidates {
		index[v] = i
	}

	valid := make([]bool, len(candidates))
	for i := range valid {
		valid[i] = true
	}
	for i, v := range candidates {
		for _, u := range graphidx.AllNeighbours(v, edges, upOffset, downOffset, downIndex) {
			j, ok := index[u]
			if !ok {
				continue
			}
			// A strictly cheaper neighbor always invalidates v. On a tie,
			// the node encountered first in the deterministic scan order
			// loses, so the later index (j > i) survives.
			if heuristic[u] < heuristic[v] || (heuristic[u] == heuristic[v] && i < j) {
				valid[i] = false
				break
			}
		}
	}

	set := make([]uint32, 0, len(candidates))
	for i, v := range candidates {
		if valid[i] {
			set = append(set, v)
		}
	}
	return set
}

// chunkify splits items into at most workers contiguous slices.
func chunkify(items []uint32, workers int) [][]uint32 {
	if workers < 1 {
		workers = 1
	}
	if len(items) == 0 {
		return nil
	}
	chunkSize := (len(items) + workers - 1) / workers
	if chunkSize < 1 {
		chunkSize = 1
	}
	var chunks [][]uint32
	for i := 0; i < len(items); i += chunkSize {
		end := i + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// computeShortcuts runs CalcShortcuts for every node in targets, chunked
// one range per worker goroutine, each with its own witness search so no
// mutable search state is shared across workers.
func computeShortcuts(targets []uint32, searches []*witness.Search, edges []model.Edge, upOffset, downOffset, downIndex []uint32, workers int) []NewShortcut {
	chunks := chunkify(targets, workers)
	if len(chunks) == 0 {
		return nil
	}
	results := make([][]NewShortcut, len(chunks))
	var g errgroup.Group
	for ci, chunk := range chunks {
		ci, chunk := ci, chunk
		g.Go(func() error {
			search := searches[ci]
			var local []NewShortcut
			for _, v := range chunk {
				local = append(local, CalcShortcuts(v, search, edges, upOffset, downOffset, downIndex)...)
			}
			results[ci] = local
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	var all []NewShortcut
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// updateHeuristics recomputes the priority heuristic for every node in
// targets, chunked across workers. Each target belongs to exactly one
// chunk, so concurrent writes to distinct heuristic slots never race.
func updateHeuristics(targets []uint32, heuristic []int64, deletedNeighbors []uint32, searches []*witness.Search, edges []model.Edge, upOffset, downOffset, downIndex []uint32, workers int) {
	chunks := chunkify(targets, workers)
	if len(chunks) == 0 {
		return
	}
	var g errgroup.Group
	for ci, chunk := range chunks {
		ci, chunk := ci, chunk
		g.Go(func() error {
			search := searches[ci]
			for _, v := range chunk {
				shortcuts := CalcShortcuts(v, search, edges, upOffset, downOffset, downIndex)
				degree := graphidx.NodeDegree(v, upOffset, downOffset)
				heuristic[v] = int64(deletedNeighbors[v]) + int64(len(shortcuts)) - int64(degree)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// removeIncident gathers every edge position touching a node in I (either
// direction), swap-removes them from active in descending position order,
// and returns the shrunk active slice plus the removed edges in the order
// they were pulled.
func removeIncident(active []model.Edge, upOffset, downOffset, downIndex []uint32, I []uint32) (remainingActive, removed []model.Edge) {
	positionSet := make(map[uint32]bool)
	for _, v := range I {
		for _, id := range graphidx.AllEdgeIDs(v, upOffset, downOffset, downIndex) {
			positionSet[id] = true
		}
	}
	positions := make([]int, 0, len(positionSet))
	for p := range positionSet {
		positions = append(positions, int(p))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))

	removed = make([]model.Edge, 0, len(positions))
	acc := active
	size := len(acc)
	for _, p := range positions {
		removed = append(removed, acc[p])
		size--
		acc[p] = acc[size]
	}
	return acc[:size], removed
}

// materializeShortcuts assigns each accepted candidate a stable id from the
// shared counter and turns it into a real shortcut edge.
func materializeShortcuts(candidates []NewShortcut, idCounter *int64) []model.Edge {
	out := make([]model.Edge, len(candidates))
	for i, c := range candidates {
		id := atomic.AddInt64(idCounter, 1) - 1
		out[i] = model.NewShortcut(c.Source, c.Target, c.Weight, id, c.ChildPrevious, c.ChildNext)
	}
	return out
}

// dedupeShortcuts collapses shortcuts that share (source, target), keeping
// the cheapest — two nodes contracted in the same round can both produce a
// shortcut over the same pair ("diamond" duplicates).
func dedupeShortcuts(edges []model.Edge) []model.Edge {
	if len(edges) == 0 {
		return edges
	}
	indexOf := make(map[[2]uint32]int, len(edges))
	out := make([]model.Edge, 0, len(edges))
	for _, e := range edges {
		key := [2]uint32{e.Source, e.Target}
		if idx, ok := indexOf[key]; ok {
			if e.Weight < out[idx].Weight {
				out[idx] = e
			}
			continue
		}
		indexOf[key] = len(out)
		out = append(out, e)
	}
	return out
}

// finalize performs the end-of-contraction cleanup: archive whatever is
// left active, drop dominated parallel edges, verify id uniqueness, rebuild
// offsets, re-sort for the query's early-exit, and rewrite child references
// from stable ids to final positions.
func finalize(nodes []model.Node, active, resulting []model.Edge, n uint32) Result {
	resulting = append(resulting, active...)

	referenced := make(map[int64]bool, len(resulting))
	for _, e := range resulting {
		if e.IsShortcut() {
			referenced[e.ContractedPrevious] = true
			referenced[e.ContractedNext] = true
		}
	}

	sort.Slice(resulting, func(i, j int) bool { return model.Less(resulting[i], resulting[j]) })
	resulting = eliminateDominated(resulting, referenced)

	seen := make(map[int64]bool, len(resulting))
	for _, e := range resulting {
		if seen[e.ID] {
			panic(fmt.Sprintf("ch: duplicate stable edge id %d after finalization", e.ID))
		}
		seen[e.ID] = true
	}

	// Re-sort by (source, target-rank descending) so the query's inner
	// loop can break on the first lower-ranked neighbor, THEN remap child
	// ids to positions — the order is mandatory, not interchangeable.
	sort.SliceStable(resulting, func(i, j int) bool {
		if resulting[i].Source != resulting[j].Source {
			return resulting[i].Source < resulting[j].Source
		}
		return nodes[resulting[i].Target].Rank > nodes[resulting[j].Target].Rank
	})

	upOffset, downOffset, downIndex := graphidx.GenerateOffsetsUnstable(resulting, n)

	idToPos := make(map[int64]int64, len(resulting))
	for i, e := range resulting {
		idToPos[e.ID] = int64(i)
	}
	for i := range resulting {
		if resulting[i].IsShortcut() {
			resulting[i].ContractedPrevious = idToPos[resulting[i].ContractedPrevious]
			resulting[i].ContractedNext = idToPos[resulting[i].ContractedNext]
		}
	}

	return Result{
		Nodes:      nodes,
		Edges:      resulting,
		UpOffset:   upOffset,
		DownOffset: downOffset,
		DownIndex:  downIndex,
	}
}

// eliminateDominated folds over every run of consecutive edges sharing
// (source, target) — the sort order guarantees such edges are adjacent —
// and drops any non-shortcut edge that is weight-dominated by the cheapest
// edge in its group and whose id no surviving shortcut references.
func eliminateDominated(edges []model.Edge, referenced map[int64]bool) []model.Edge {
	out := make([]model.Edge, 0, len(edges))
	i := 0
	for i < len(edges) {
		j := i + 1
		for j < len(edges) && edges[j].Source == edges[i].Source && edges[j].Target == edges[i].Target {
			j++
		}
		group := edges[i:j]
		minWeight := group[0].Weight
		for _, e := range group[1:] {
			if e.Weight < minWeight {
				minWeight = e.Weight
			}
		}
		for _, e := range group {
			if !e.IsShortcut() && e.Weight > minWeight && !referenced[e.ID] {
				continue
			}
			out = append(out, e)
		}
		i = j
	}
	return out
}
