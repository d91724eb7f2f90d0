package query

// epochSet is an epoch-tagged membership set: Reset is O(1) because it just
// bumps a generation counter instead of rewriting every slot. Query.Engine
// keeps four of these (settled/reachable x forward/backward) so a request
// handler can reuse one engine across many sequential requests without
// re-zeroing its state each time.
type epochSet struct {
	flags []uint32
	epoch uint32
}

func newEpochSet(n uint32) *epochSet {
	return &epochSet{flags: make([]uint32, n), epoch: 1}
}

func (s *epochSet) IsSet(node uint32) bool { return s.flags[node] == s.epoch }

func (s *epochSet) Set(node uint32) { s.flags[node] = s.epoch }

func (s *epochSet) Reset() {
	if s.epoch == ^uint32(0) {
		for i := range s.flags {
			s.flags[i] = 0
		}
		s.epoch = 1
		return
	}
	s.epoch++
}
