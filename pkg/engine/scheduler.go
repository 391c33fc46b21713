package engine

import (
	"sync"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/vango-dev/vtree/pkg/scope"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// dirtyQueue orders dirty scopes by height, shallowest first, and by the
// order they were marked within a height.
//
// A scope is queued at most once while dirty. Entries are invalidated
// lazily: Cancel only clears the dirty mark, and Pop skips heap entries
// whose mark is gone or belongs to an earlier generation of the slot.
//
// dirtyQueue has its own lock so hook writes from other goroutines never
// wait on a render in progress.
type dirtyQueue struct {
	mu     sync.Mutex
	heap   *binaryheap.Heap
	dirty  map[vdom.ScopeID]scope.Ref
	seq    uint64
	notify func()
}

type dirtyEntry struct {
	ref scope.Ref
	seq uint64
}

func dirtyComparator(aArg, bArg any) int {
	a := aArg.(dirtyEntry)
	b := bArg.(dirtyEntry)
	switch {
	case a.ref.Height < b.ref.Height:
		return -1
	case a.ref.Height > b.ref.Height:
		return 1
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

func newDirtyQueue() *dirtyQueue {
	return &dirtyQueue{
		heap:  binaryheap.NewWith(dirtyComparator),
		dirty: make(map[vdom.ScopeID]scope.Ref),
	}
}

// Schedule implements scope.Scheduler. A ref from an earlier generation of
// a slot never displaces the mark of the scope that reused it.
func (q *dirtyQueue) Schedule(ref scope.Ref) {
	q.mu.Lock()
	if cur, ok := q.dirty[ref.ID]; ok && cur.Generation >= ref.Generation {
		q.mu.Unlock()
		return
	}
	q.dirty[ref.ID] = ref
	q.seq++
	q.heap.Push(dirtyEntry{ref: ref, seq: q.seq})
	notify := q.notify
	q.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Cancel implements scope.Scheduler.
func (q *dirtyQueue) Cancel(id vdom.ScopeID) {
	q.mu.Lock()
	delete(q.dirty, id)
	q.mu.Unlock()
}

// Pop removes and returns the shallowest dirty scope, clearing its mark.
func (q *dirtyQueue) Pop() (scope.Ref, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.heap.Empty() {
		top, _ := q.heap.Pop()
		entry := top.(dirtyEntry)
		cur, ok := q.dirty[entry.ref.ID]
		if !ok || cur.Generation != entry.ref.Generation {
			continue
		}
		delete(q.dirty, entry.ref.ID)
		return entry.ref, true
	}
	return scope.Ref{}, false
}

// Len returns the number of dirty marks, including marks for scopes that
// have since been removed.
func (q *dirtyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dirty)
}

// prune drops dirty marks that valid rejects and reports how many remain.
func (q *dirtyQueue) prune(valid func(scope.Ref) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, ref := range q.dirty {
		if !valid(ref) {
			delete(q.dirty, id)
		}
	}
	if len(q.dirty) == 0 {
		q.heap.Clear()
	}
	return len(q.dirty)
}
