package quota

import "sync"

// tracker counts background goroutines. Unlike sync.WaitGroup, add may run
// while a waiter is blocked: a real timer can fire during Drain.
type tracker struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func newTracker() *tracker {
	t := &tracker{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *tracker) add() {
	t.mu.Lock()
	t.n++
	t.mu.Unlock()
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.n--
	if t.n <= 0 {
		t.n = 0
		t.cond.Broadcast()
	}
}

func (t *tracker) wait() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.n > 0 {
		t.cond.Wait()
	}
}
