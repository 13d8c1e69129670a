// File: cell/returnqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// returnQueue backs Cell.NoteReturned/TakeUncountedReturn (spec.md §4.1:
// "count only cores already reclaimed toward this allocation; the
// outstanding ones will materialize on later allocations"). Wraps
// eapache/queue, a ring-buffer FIFO with none of the teacher's lock-free
// SPSC assumptions, since returns and takes can race from different
// goroutines.

package cell

import (
	"sync"

	"github.com/eapache/queue"
)

type returnQueue struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newReturnQueue() *returnQueue {
	return &returnQueue{q: queue.New()}
}

func (r *returnQueue) push(cpu int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.q.Add(cpu)
}

// pop returns -1 if nothing is pending.
func (r *returnQueue) pop() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.q.Length() == 0 {
		return -1
	}
	return r.q.Remove().(int)
}
