package monthview

import "sync"

// Locked serializes all access to a View. The layout engine assumes a single
// writer; hosts with several goroutines (HTTP handlers, the refresh job)
// share one Locked.
type Locked struct {
	mu sync.Mutex
	v  *View
}

func NewLocked(v *View) *Locked {
	return &Locked{v: v}
}

// Do runs fn with exclusive access to the view. Selection listeners
// triggered by fn are called once the lock is released.
func (l *Locked) Do(fn func(v *View) error) error {
	pending, err := l.run(fn)
	for _, notify := range pending {
		notify()
	}
	return err
}

func (l *Locked) run(fn func(v *View) error) ([]func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.v.deferNotify = true
	defer func() {
		l.v.deferNotify = false
		l.v.pending = nil
	}()

	err := fn(l.v)
	return l.v.pending, err
}

// Snapshot returns the current layout under the lock.
func (l *Locked) Snapshot() Layout {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v.Layout()
}
