package query

// heapItem is a min-heap entry ordered by weight, identical in spirit to
// the one pkg/witness uses for its single-sided search.
type heapItem struct {
	node   uint32
	weight uint32
}

type minHeap struct {
	items []heapItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(node, weight uint32) {
	h.items = append(h.items, heapItem{node, weight})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Peek() (heapItem, bool) {
	if len(h.items) == 0 {
		return heapItem{}, false
	}
	return h.items[0], true
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

func (h *minHeap) Reset() { h.items = h.items[:0] }

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
