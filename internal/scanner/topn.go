package scanner

import (
	"container/heap"

	"github.com/kcenon/cleanupengine/internal/core"
)

// bySizeHeap is a bounded min-heap over ScanItem ordered so the root is
// always the weakest entry by size (ties broken by path, lexicographically
// later being weaker). Popping the root and pushing a candidate keeps the N largest items
// without ever holding more than N in memory.
type bySizeHeap []core.ScanItem

func (h bySizeHeap) Len() int { return len(h) }
func (h bySizeHeap) Less(i, j int) bool {
	if h[i].Size != h[j].Size {
		return h[i].Size < h[j].Size
	}
	return h[i].Path > h[j].Path
}
func (h bySizeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bySizeHeap) Push(x any)         { *h = append(*h, x.(core.ScanItem)) }
func (h *bySizeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// byAgeHeap is a bounded max-heap over ModifiedAt so the root is always the
// weakest entry for an "oldest N" selection: the root holds the NEWEST
// mtime currently retained, and gets evicted first as older items arrive.
type byAgeHeap []core.ScanItem

func (h byAgeHeap) Len() int { return len(h) }
func (h byAgeHeap) Less(i, j int) bool {
	if !h[i].ModifiedAt.Equal(h[j].ModifiedAt) {
		return h[i].ModifiedAt.After(h[j].ModifiedAt)
	}
	return h[i].Path > h[j].Path
}
func (h byAgeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *byAgeHeap) Push(x any)   { *h = append(*h, x.(core.ScanItem)) }
func (h *byAgeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topN accumulates the top N items from an unbounded stream for two
// orderings at once: by size descending and by age ascending (oldest
// first). It holds O(N) memory regardless of stream length.
type topN struct {
	n    int
	size bySizeHeap
	age  byAgeHeap
}

func newTopN(n int) *topN {
	if n <= 0 {
		n = 100
	}
	return &topN{n: n}
}

func (t *topN) Offer(item core.ScanItem) {
	t.offerSize(item)
	t.offerAge(item)
}

func (t *topN) offerSize(item core.ScanItem) {
	if len(t.size) < t.n {
		heap.Push(&t.size, item)
		return
	}
	if len(t.size) == 0 {
		return
	}
	root := t.size[0]
	if (bySizeHeap{root, item}).Less(0, 1) {
		t.size[0] = item
		heap.Fix(&t.size, 0)
	}
}

func (t *topN) offerAge(item core.ScanItem) {
	if len(t.age) < t.n {
		heap.Push(&t.age, item)
		return
	}
	if len(t.age) == 0 {
		return
	}
	root := t.age[0]
	if (byAgeHeap{root, item}).Less(0, 1) {
		t.age[0] = item
		heap.Fix(&t.age, 0)
	}
}

// BySize returns the retained items ordered by size descending.
func (t *topN) BySize() []core.ScanItem {
	cp := make(bySizeHeap, len(t.size))
	copy(cp, t.size)
	out := make([]core.ScanItem, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, heap.Pop(&cp).(core.ScanItem))
	}
	// heap.Pop on a min-heap yields ascending order; reverse for descending.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ByAge returns the retained items ordered by mtime ascending (oldest
// first).
func (t *topN) ByAge() []core.ScanItem {
	cp := make(byAgeHeap, len(t.age))
	copy(cp, t.age)
	out := make([]core.ScanItem, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, heap.Pop(&cp).(core.ScanItem))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
