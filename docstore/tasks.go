package docstore

import "sync"

// taskRunner executes background work off the owner goroutine and lets the
// store drain in-flight work during Close.
type taskRunner struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// submit schedules fn on a new goroutine. Returns false once the runner has
// been closed.
func (r *taskRunner) submit(fn func()) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		fn()
	}()
	return true
}

// closeAndWait rejects new work and blocks until in-flight tasks finish.
func (r *taskRunner) closeAndWait() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}
