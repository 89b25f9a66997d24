package service

import (
	"sync"
	"time"
)

// Timer is a scheduled action that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallClock schedules on real time.
func WallClock() Scheduler {
	return wallClock{}
}

type pendingAction struct {
	timer Timer
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// ProvisionTimer holds at most one pending action per identifier. A fired
// action runs inside Exclusive for its id, so it cannot interleave with other
// writers of that id.
type ProvisionTimer struct {
	scheduler Scheduler
	mu        sync.Mutex
	pending   map[string]*pendingAction
	locks     map[string]*idLock
}

func NewProvisionTimer(scheduler Scheduler) *ProvisionTimer {
	if scheduler == nil {
		scheduler = WallClock()
	}
	return &ProvisionTimer{
		scheduler: scheduler,
		pending:   make(map[string]*pendingAction),
		locks:     make(map[string]*idLock),
	}
}

// Exclusive runs fn while holding the lock for id. fn may call Schedule and
// CancelIfPresent but not Exclusive for the same id.
func (t *ProvisionTimer) Exclusive(id string, fn func()) {
	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &idLock{}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, id)
		}
		t.mu.Unlock()
	}()
	fn()
}

// Schedule replaces any pending action for id with action, run after d.
func (t *ProvisionTimer) Schedule(id string, d time.Duration, action func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.pending[id]; ok {
		prev.timer.Stop()
	}

	entry := &pendingAction{}
	t.pending[id] = entry
	entry.timer = t.scheduler.AfterFunc(d, func() {
		t.Exclusive(id, func() {
			t.mu.Lock()
			if t.pending[id] != entry {
				// Replaced or cancelled after the timer had already fired.
				t.mu.Unlock()
				return
			}
			delete(t.pending, id)
			t.mu.Unlock()
			action()
		})
	})
}

// CancelIfPresent stops the pending action for id, reporting whether one existed.
func (t *ProvisionTimer) CancelIfPresent(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.pending[id]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.pending, id)
	return true
}

func (t *ProvisionTimer) Pending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[id]
	return ok
}

// StopAll cancels every pending action. Used on shutdown.
func (t *ProvisionTimer) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, entry := range t.pending {
		entry.timer.Stop()
		delete(t.pending, id)
	}
}
