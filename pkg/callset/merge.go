package callset

import (
	"container/heap"
	"iter"

	"github.com/scttfrdmn/breakasm-go/pkg/calling"
)

// mergeItem is the head of one input list in the k-way merge.
type mergeItem struct {
	call calling.Call
	list int
	pos  int
}

// mergeHeap implements heap.Interface for k-way merge
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if c := calling.Compare(h[i].call, h[j].call); c != 0 {
		return c < 0
	}
	return h[i].list < h[j].list
}

func (h mergeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *mergeHeap) Push(x interface{}) {
	*h = append(*h, x.(mergeItem))
}

func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// Merge performs a k-way merge of call lists that are each sorted in
// calling.Compare order. Equal calls come out in list order.
func Merge(lists ...[]calling.Call) iter.Seq[calling.Call] {
	return func(yield func(calling.Call) bool) {
		h := &mergeHeap{}
		for i, list := range lists {
			if len(list) > 0 {
				*h = append(*h, mergeItem{call: list[0], list: i})
			}
		}
		heap.Init(h)

		for h.Len() > 0 {
			item := heap.Pop(h).(mergeItem)
			if !yield(item.call) {
				return
			}
			// Refill from the same list
			if next := item.pos + 1; next < len(lists[item.list]) {
				heap.Push(h, mergeItem{call: lists[item.list][next], list: item.list, pos: next})
			}
		}
	}
}

// MergeCalls collects Merge into a slice.
func MergeCalls(lists ...[]calling.Call) []calling.Call {
	n := 0
	for _, list := range lists {
		n += len(list)
	}
	out := make([]calling.Call, 0, n)
	for call := range Merge(lists...) {
		out = append(out, call)
	}
	return out
}
