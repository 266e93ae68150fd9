// Package keyalloc hands out integer record keys and recycles the keys of deleted
// records, smallest first.
package keyalloc

import (
	"container/heap"
	"sort"
)

// FirstKey is the first key a fresh allocator hands out.
const FirstKey = 1

// Allocator is a counter plus a min-heap of released keys. It is not safe for
// concurrent use.
type Allocator struct {
	next  int
	free  intHeap
	// freed is the set of keys currently in free. Reserve drops keys from it
	// without touching the heap; Next skips heap entries missing from it.
	freed map[int]struct{}
}

func New() *Allocator {
	return &Allocator{next: FirstKey, freed: map[int]struct{}{}}
}

// Restore rebuilds an allocator from the values returned by State.
func Restore(next int, free []int) *Allocator {
	if next < FirstKey {
		next = FirstKey
	}
	a := &Allocator{next: next, freed: make(map[int]struct{}, len(free))}
	for _, k := range free {
		a.Release(k)
	}
	return a
}

// Next returns the smallest released key, or a new key if none were released.
func (a *Allocator) Next() int {
	for a.free.Len() > 0 {
		k := heap.Pop(&a.free).(int)
		if _, ok := a.freed[k]; ok {
			delete(a.freed, k)
			return k
		}
	}
	k := a.next
	a.next++
	return k
}

// Release makes key available to Next again. Keys that were never handed out or
// are already released are ignored.
func (a *Allocator) Release(key int) {
	if key < FirstKey || key >= a.next {
		return
	}
	if _, ok := a.freed[key]; ok {
		return
	}
	a.freed[key] = struct{}{}
	heap.Push(&a.free, key)
}

// Reserve marks a key chosen by the caller as in use so Next never returns it.
func (a *Allocator) Reserve(key int) {
	if key >= a.next {
		a.next = key + 1
		return
	}
	delete(a.freed, key)
}

// Len returns the number of released keys waiting for reuse.
func (a *Allocator) Len() int {
	return len(a.freed)
}

// State returns the counter and the released keys in ascending order.
func (a *Allocator) State() (next int, free []int) {
	free = make([]int, 0, len(a.freed))
	for k := range a.freed {
		free = append(free, k)
	}
	sort.Ints(free)
	return a.next, free
}

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *intHeap) Push(x interface{}) {
	*h = append(*h, x.(int))
}

func (h *intHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
