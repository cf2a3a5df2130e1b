// Package view binds a piece of remote data to a loader and keeps it fresh
// when a refresh signal changes.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "frugal/internal/log"
	"frugal/internal/refresh"
)

// ErrSuperseded is returned by Load when a newer load was issued before this
// one finished, so its result was thrown away.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Loader fetches the current value of a view.
type Loader[T any] func(ctx context.Context) (T, error)

// Snapshot is a consistent copy of a view's state.
type Snapshot[T any] struct {
	Data    T
	Err     error
	Loading bool
	Loaded  bool   // at least one load succeeded
	Seq     uint64 // id of the request whose result is in Data/Err
}

type View[T any] struct {
	name   string
	load   Loader[T]
	logger *applog.Logger

	mu       sync.Mutex
	data     T
	err      error
	loaded   bool
	issued   uint64 // last request id handed out
	settled  uint64 // last request id whose outcome was applied
	loads    int
	onChange func()

	// pending counts triggered loads still running. idle is broadcast when
	// it drops to zero.
	pendMu  sync.Mutex
	pending int
	idle    *sync.Cond
}

func New[T any](name string, load Loader[T], logger *applog.Logger) *View[T] {
	if logger == nil {
		logger = applog.Discard()
	}
	v := &View[T]{
		name:   name,
		load:   load,
		logger: logger.WithComponent(applog.ComponentView),
	}
	v.idle = sync.NewCond(&v.pendMu)
	return v
}

func (v *View[T]) Name() string { return v.name }

// OnChange registers fn to run after every applied load outcome.
func (v *View[T]) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Load runs the loader once. On success the data is replaced wholesale; on
// failure the error is recorded and logged and the previous data is kept.
// A result that arrives after a newer Load was issued is discarded and
// ErrSuperseded is returned.
func (v *View[T]) Load(ctx context.Context) error {
	v.mu.Lock()
	v.issued++
	seq := v.issued
	v.loads++
	v.mu.Unlock()

	start := time.Now()
	data, err := v.load(ctx)

	v.mu.Lock()
	if seq != v.issued {
		v.mu.Unlock()
		v.logger.Debug("Discarding stale response",
			applog.FieldView, v.name,
			applog.FieldSeq, seq,
			applog.FieldError, err)
		return ErrSuperseded
	}
	v.settled = seq
	if err != nil {
		v.err = err
	} else {
		v.data = data
		v.err = nil
		v.loaded = true
	}
	onChange := v.onChange
	v.mu.Unlock()

	fields := applog.NewFields().
		WithOperation(applog.OpLoad).
		WithView(v.name, seq)
	if err != nil {
		v.logger.Warn("View load failed", fields.WithError(err).ToSlice()...)
	} else {
		v.logger.Debug("View loaded", append(fields.ToSlice(), applog.FieldDuration, time.Since(start).Milliseconds())...)
	}

	if onChange != nil {
		onChange()
	}
	return err
}

// Trigger starts a Load in the background. Wait blocks until every
// triggered load has returned.
func (v *View[T]) Trigger(ctx context.Context) {
	v.pendMu.Lock()
	v.pending++
	v.pendMu.Unlock()

	go func() {
		defer v.settle()
		_ = v.Load(ctx)
	}()
}

func (v *View[T]) settle() {
	v.pendMu.Lock()
	v.pending--
	if v.pending == 0 {
		v.idle.Broadcast()
	}
	v.pendMu.Unlock()
}

// Bind reloads the view on every change of sig and returns the
// unsubscribe function.
func (v *View[T]) Bind(ctx context.Context, sig *refresh.Signal) func() {
	return sig.Subscribe(func(uint64) {
		if ctx.Err() != nil {
			return
		}
		v.Trigger(ctx)
	})
}

// Wait blocks until no triggered load is running. It is safe to call while
// other goroutines keep triggering.
func (v *View[T]) Wait() {
	v.pendMu.Lock()
	for v.pending > 0 {
		v.idle.Wait()
	}
	v.pendMu.Unlock()
}

func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot[T]{
		Data:    v.data,
		Err:     v.err,
		Loading: v.issued != v.settled,
		Loaded:  v.loaded,
		Seq:     v.settled,
	}
}

// Loading reports whether the most recently issued load is still running.
func (v *View[T]) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.issued != v.settled
}

// Loads returns how many loads have been issued.
func (v *View[T]) Loads() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loads
}
