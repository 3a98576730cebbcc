package lottery

import (
	"sync"
	"time"
)

// expiryScheduler arms one timer per pending order and fires a callback
// when the reservation window elapses. Consuming an order cancels its
// timer instead of racing the removal.
type expiryScheduler struct {
	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	fire    func(memo uint64)
	stopped bool
}

func newExpiryScheduler(fire func(memo uint64)) *expiryScheduler {
	return &expiryScheduler{
		timers: make(map[uint64]*time.Timer),
		fire:   fire,
	}
}

// Arm schedules expiry for memo after delay. Re-arming an already armed
// memo resets its timer.
func (e *expiryScheduler) Arm(memo uint64, delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if t, ok := e.timers[memo]; ok {
		t.Stop()
	}
	e.timers[memo] = time.AfterFunc(delay, func() {
		e.mu.Lock()
		delete(e.timers, memo)
		stopped := e.stopped
		e.mu.Unlock()
		if !stopped {
			e.fire(memo)
		}
	})
}

// Cancel stops the timer for memo if one is armed.
func (e *expiryScheduler) Cancel(memo uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[memo]; ok {
		t.Stop()
		delete(e.timers, memo)
	}
}

// Stop cancels every armed timer and prevents new ones.
func (e *expiryScheduler) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for memo, t := range e.timers {
		t.Stop()
		delete(e.timers, memo)
	}
}
