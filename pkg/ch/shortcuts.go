// Package ch implements contraction hierarchies preprocessing: the shortcut
// calculator that decides what a single node contraction replaces (this
// file), and the contraction driver that runs the whole priority-ordered
// loop (contractor.go).
package ch

import (
	"fmt"
	"math"
	"sort"

	"chrouter/pkg/graphidx"
	"chrouter/pkg/model"
	"chrouter/pkg/witness"
)

// NewShortcut is a candidate shortcut produced by CalcShortcuts. It carries
// the stable ids of the two edges it would replace; the caller assigns the
// shortcut its own stable id only once it decides to keep it (via the
// shared counter), so rejected candidates never burn an id.
type NewShortcut struct {
	Source, Target           uint32
	Weight                   uint32
	ChildPrevious, ChildNext int64
}

type pairKey struct{ u, w uint32 }

type pairCandidate struct {
	delta         uint32
	inPos, outPos uint32 // positions of the witness (incoming, outgoing) edges
}

// CalcShortcuts enumerates every (incoming, outgoing) edge pair around v,
// keeps only the cheapest arc per (u, w) endpoint pair, and emits a
// shortcut for each pair whose witness search fails to find a strictly
// shorter u-to-w path. The witness search does not exclude v: a shorter
// path through v enters or leaves v by another edge, and the pair it uses
// there is itself covered by a shortcut or a witness. search is reused
// across calls for the same contraction round; the reset needed between
// unrelated nodes comes for free because AvoidNode below always forces a
// fresh frontier.
func CalcShortcuts(v uint32, search *witness.Search, edges []model.Edge, upOffset, downOffset, downIndex []uint32) []NewShortcut {
	inIDs := graphidx.DownEdgeIDs(v, downOffset, downIndex)
	outIDs := graphidx.UpEdgeIDs(v, upOffset)
	if len(inIDs) == 0 || len(outIDs) == 0 {
		return nil
	}

	pairs := make(map[pairKey]pairCandidate)
	for _, i := range inIDs {
		in := edges[i]
		u := in.Source
		if u == v {
			continue // self-loop into v
		}
		for _, o := range outIDs {
			out := edges[o]
			w := out.Target
			if w == v || w == u {
				continue // self-loop out of v, or a u==w round trip
			}
			delta := in.Weight + out.Weight
			if delta < in.Weight || delta < out.Weight {
				panic(fmt.Sprintf("ch: shortcut weight overflow contracting node %d: %d + %d", v, in.Weight, out.Weight))
			}
			key := pairKey{u, w}
			if cur, ok := pairs[key]; !ok || delta < cur.delta {
				pairs[key] = pairCandidate{delta: delta, inPos: i, outPos: o}
			}
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	// Sorted (u, w) iteration order groups consecutive pairs by shared u,
	// which is exactly the access pattern that lets the witness search
	// resume its frontier instead of restarting from scratch.
	keys := make([]pairKey, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].u != keys[b].u {
			return keys[a].u < keys[b].u
		}
		return keys[a].w < keys[b].w
	})

	// No node has id MaxUint32, so nothing is excluded; the call only
	// forces a fresh frontier.
	search.AvoidNode(math.MaxUint32)
	var shortcuts []NewShortcut
	for _, key := range keys {
		cand := pairs[key]
		search.SetMaxWeight(cand.delta)
		_, witnessWeight, ok := search.FindPath(key.u, key.w, upOffset, edges)
		if ok && witnessWeight < cand.delta {
			continue // a strictly shorter witness exists: shortcut not needed
		}
		shortcuts = append(shortcuts, NewShortcut{
			Source:        key.u,
			Target:        key.w,
			Weight:        cand.delta,
			ChildPrevious: edges[cand.inPos].ID,
			ChildNext:     edges[cand.outPos].ID,
		})
	}
	return shortcuts
}
