package ticksource

import "github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"

// mergeItem is one reader's frontier tick awaiting emission.
type mergeItem struct {
	tick   model.Tick
	reader int
}

// mergeHeap orders frontier ticks by (time, seq, source tag) so merge
// order is total and deterministic even when timestamps collide.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i].tick, h[j].tick
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.Source < b.Source
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(mergeItem))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
