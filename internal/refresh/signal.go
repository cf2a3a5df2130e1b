// Package refresh provides the change counter that tells dashboard views to
// reload after something modified server-side data.
package refresh

import (
	"sync"

	applog "frugal/internal/log"
)

// Listener receives the counter value produced by a Bump.
type Listener func(version uint64)

// Signal is a monotonically increasing counter with change notification.
// Every Bump is delivered to every subscriber; there is no coalescing.
type Signal struct {
	mu        sync.Mutex
	version   uint64
	nextID    uint64
	listeners map[uint64]Listener
	logger    *applog.Logger
}

func NewSignal(logger *applog.Logger) *Signal {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Signal{
		listeners: make(map[uint64]Listener),
		logger:    logger.WithComponent(applog.ComponentSignal),
	}
}

// Version returns the current counter value.
func (s *Signal) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Bump increments the counter and notifies subscribers with the new value.
// Listeners run synchronously on the caller's goroutine, outside the lock.
func (s *Signal) Bump() uint64 {
	s.mu.Lock()
	s.version++
	v := s.version
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	s.logger.Debug("Refresh signal bumped",
		applog.FieldOperation, applog.OpBump,
		applog.FieldSignal, v,
		applog.FieldCount, len(ls))
	for _, l := range ls {
		l(v)
	}
	return v
}

// Subscribe registers fn and returns a function that removes it. Calling
// the returned function more than once is safe.
func (s *Signal) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers reports how many listeners are registered.
func (s *Signal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
