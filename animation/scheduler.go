// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package animation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TickFunc is a scheduled callback. now is the time since the scheduler's
// origin and does not decrease between calls.
type TickFunc func(now time.Duration)

// TickID identifies a scheduled tick.
type TickID uint64

// Scheduler arranges for callbacks to be run once, at the next tick.
type Scheduler interface {
	// Schedule requests that fn be called once at the next tick.
	Schedule(fn TickFunc) TickID
	// Cancel removes a scheduled callback that has not yet run.
	Cancel(id TickID)
}

type tick struct {
	id TickID
	fn TickFunc
}

// queue is a set of pending ticks.
type queue struct {
	mu      sync.Mutex
	last    TickID
	pending []tick
}

func (q *queue) schedule(fn TickFunc) TickID {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.last++
	q.pending = append(q.pending, tick{id: q.last, fn: fn})
	return q.last
}

func (q *queue) cancel(id TickID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.pending {
		if t.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// take removes and returns all pending ticks.
func (q *queue) take() []tick {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := q.pending
	q.pending = nil
	return p
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Manual is a Scheduler that runs callbacks only when Advance is called.
// The zero value is ready to use.
type Manual struct {
	q queue
}

// Schedule implements the Scheduler interface.
func (m *Manual) Schedule(fn TickFunc) TickID { return m.q.schedule(fn) }

// Cancel implements the Scheduler interface.
func (m *Manual) Cancel(id TickID) { m.q.cancel(id) }

// Advance runs every callback scheduled before the call with the provided
// time and returns the number of callbacks run. Callbacks scheduled during
// Advance are run by the next call.
func (m *Manual) Advance(now time.Duration) int {
	ticks := m.q.take()
	for _, t := range ticks {
		t.fn(now)
	}
	return len(ticks)
}

// Pending returns the number of scheduled callbacks.
func (m *Manual) Pending() int { return m.q.len() }

// DefaultFrameInterval is the frame interval used by a Loop when none is
// specified.
const DefaultFrameInterval = time.Second / 60

// Loop is a Scheduler that runs callbacks on a single goroutine at a fixed
// frame interval. Callbacks scheduled during a frame are run in the next
// frame.
type Loop struct {
	interval time.Duration
	origin   time.Time

	q    queue
	work chan func()
	done chan struct{}
	once sync.Once
}

// NewLoop returns a new Loop with the provided frame interval. If interval
// is not positive, DefaultFrameInterval is used. The loop's time origin is
// the time of the call.
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		interval: interval,
		origin:   time.Now(),
		work:     make(chan func()),
		done:     make(chan struct{}),
	}
}

// Schedule implements the Scheduler interface.
func (l *Loop) Schedule(fn TickFunc) TickID { return l.q.schedule(fn) }

// Cancel implements the Scheduler interface.
func (l *Loop) Cancel(id TickID) { l.q.cancel(id) }

// Now returns the current loop time.
func (l *Loop) Now() time.Duration { return time.Since(l.origin) }

// ErrLoopStopped is returned by Loop.Do when the loop is no longer running.
var ErrLoopStopped = errors.New("loop stopped")

// Do runs fn on the loop goroutine and waits for it to complete. Do must
// not be called from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case l.work <- func() { fn(); close(ran) }:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

// Run runs scheduled callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, false)
}

// RunUntilIdle runs scheduled callbacks until ctx is cancelled or no
// callbacks remain scheduled at the end of a frame. It returns nil when the
// loop became idle.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.run(ctx, true)
}

func (l *Loop) run(ctx context.Context, untilIdle bool) error {
	defer l.once.Do(func() { close(l.done) })
	frame := time.NewTicker(l.interval)
	defer frame.Stop()
	for {
		if untilIdle && l.q.len() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.work:
			fn()
		case <-frame.C:
			now := l.Now()
			for _, t := range l.q.take() {
				t.fn(now)
			}
		}
	}
}
