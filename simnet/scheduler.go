package simnet

import (
	"container/heap"
	"sync"
	"time"
)

// Scheduler schedules one-shot callbacks. Cancel is idempotent and safe to
// call on an already-fired handle.
type Scheduler interface {
	After(d time.Duration, fn func()) *Timer
	Cancel(t *Timer)
	Now() time.Time
}

// Timer is a handle to a scheduled callback.
type Timer struct {
	at        time.Time
	seq       uint64 // insertion order, breaks fire-time ties
	index     int    // position in the event queue, -1 when not queued
	fn        func()
	fired     bool
	cancelled bool
	wall      *time.Timer // real-time mode only
}

// An eventQueue implements heap.Interface ordered by fire time, then
// insertion order.
type eventQueue []*Timer

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	n := len(*q)
	t := x.(*Timer)
	t.index = n
	*q = append(*q, t)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil // don't stop the GC from reclaiming the item eventually
	t.index = -1
	*q = old[0 : n-1]
	return t
}

// Loop is a discrete-event scheduler. All callbacks run sequentially on the
// goroutine that calls Run, so sessions sharing a Loop need no locking.
//
// In virtual-time mode (NewLoop) the clock jumps from one fire time to the
// next and Run returns when the queue drains. In real-time mode
// (NewRealLoop) fire times track the wall clock and Run blocks until Stop.
type Loop struct {
	mu      sync.Mutex
	queue   eventQueue
	nextSeq uint64
	now     time.Time
	real    bool
	wake    chan struct{}
	stopped bool
}

// NewLoop returns a virtual-time loop. The clock starts at the Unix epoch.
func NewLoop() *Loop {
	return &Loop{now: time.Unix(0, 0), wake: make(chan struct{}, 1)}
}

// NewRealLoop returns a loop whose clock is the wall clock.
func NewRealLoop() *Loop {
	return &Loop{now: time.Now(), real: true, wake: make(chan struct{}, 1)}
}

func (l *Loop) Now() time.Time {
	if l.real {
		return time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// After schedules fn to run once after d. Safe to call from any goroutine;
// fn itself always runs on the loop goroutine.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	l.mu.Lock()
	t := &Timer{fn: fn, seq: l.nextSeq, index: -1}
	l.nextSeq++
	if l.real {
		t.at = time.Now().Add(d)
		l.mu.Unlock()
		t.wall = time.AfterFunc(d, func() { l.enqueue(t) })
		return t
	}
	t.at = l.now.Add(d)
	heap.Push(&l.queue, t)
	l.mu.Unlock()
	return t
}

// Post schedules fn to run as soon as possible.
func (l *Loop) Post(fn func()) {
	l.After(0, fn)
}

// Cancel unschedules t. Cancelling a fired, cancelled, or nil handle is a
// no-op.
func (l *Loop) Cancel(t *Timer) {
	if t == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.fired || t.cancelled {
		return
	}
	t.cancelled = true
	if t.wall != nil {
		t.wall.Stop()
	}
	if t.index >= 0 {
		heap.Remove(&l.queue, t.index)
	}
}

// enqueue moves a wall-clock timer that just expired onto the dispatch
// queue.
func (l *Loop) enqueue(t *Timer) {
	l.mu.Lock()
	if t.cancelled {
		l.mu.Unlock()
		return
	}
	t.at = time.Now()
	heap.Push(&l.queue, t)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run dispatches events until the queue drains (virtual mode) or Stop is
// called.
func (l *Loop) Run() {
	l.run(time.Time{})
}

// RunFor dispatches events in virtual mode until d of virtual time has
// elapsed or the queue drains, whichever comes first. Events scheduled past
// the bound stay queued and never run.
func (l *Loop) RunFor(d time.Duration) {
	l.mu.Lock()
	deadline := l.now.Add(d)
	l.mu.Unlock()
	l.run(deadline)
}

// Stop makes Run return after the currently dispatching callback, if any.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) run(deadline time.Time) {
	for {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return
		}
		if l.queue.Len() == 0 {
			l.mu.Unlock()
			if !l.real {
				return
			}
			<-l.wake
			continue
		}
		t := l.queue[0]
		if !l.real && !deadline.IsZero() && t.at.After(deadline) {
			l.now = deadline
			l.mu.Unlock()
			return
		}
		heap.Pop(&l.queue)
		if !l.real {
			l.now = t.at
		}
		t.fired = true
		fn := t.fn
		l.mu.Unlock()
		fn()
	}
}
