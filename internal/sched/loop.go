package sched

import (
	"context"
	"sync"
	"time"
)

// Loop is a ticker-driven event loop standing in for the editing host's
// frame loop. Callbacks run on the loop goroutine when Run drives it, or
// on the caller's goroutine when Tick is invoked directly.
type Loop struct {
	interval time.Duration

	mu         sync.Mutex
	nextID     int
	onTick     map[int]func()
	onQuit     map[int]func()
	onReloaded map[int]func()
}

// NewLoop creates a loop that fires every interval.
func NewLoop(interval time.Duration) *Loop {
	return &Loop{
		interval:   interval,
		onTick:     make(map[int]func()),
		onQuit:     make(map[int]func()),
		onReloaded: make(map[int]func()),
	}
}

// OnEveryTick registers fn to run on every tick. The returned func
// removes the registration; calling it more than once is harmless.
func (l *Loop) OnEveryTick(fn func()) func() {
	return l.register(l.onTick, fn)
}

// OnBeforeQuit registers fn to run when NotifyBeforeQuit fires.
func (l *Loop) OnBeforeQuit(fn func()) func() {
	return l.register(l.onQuit, fn)
}

// OnAfterReloadCompleted registers fn to run when a host reload finishes.
func (l *Loop) OnAfterReloadCompleted(fn func()) func() {
	return l.register(l.onReloaded, fn)
}

func (l *Loop) register(m map[int]func(), fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	m[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(m, id)
	}
}

// Run drives the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick runs every tick callback once; ordering across callbacks is not
// guaranteed. Callbacks may unregister themselves mid-tick; the removal
// takes effect on the next tick.
func (l *Loop) Tick() {
	l.invoke(l.onTick)
}

// NotifyBeforeQuit runs every quit callback once.
func (l *Loop) NotifyBeforeQuit() {
	l.invoke(l.onQuit)
}

// NotifyReloadCompleted runs every reload callback once.
func (l *Loop) NotifyReloadCompleted() {
	l.invoke(l.onReloaded)
}

func (l *Loop) invoke(m map[int]func()) {
	l.mu.Lock()
	fns := make([]func(), 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
