package protocol

import (
	"time"

	"rdt-sim/simnet"
)

// TimerManager tracks retransmission timers keyed by sequence number. At
// most one timer is armed per outstanding sequence number; re-arming
// replaces the previous timer. Cancel is idempotent and safe against timers
// that already fired, so a fire racing a late cancellation falls through to
// the sender's own pending-sequence check.
type TimerManager struct {
	sched simnet.Scheduler
	armed map[uint32]*simnet.Timer
}

func NewTimerManager(sched simnet.Scheduler) *TimerManager {
	return &TimerManager{
		sched: sched,
		armed: make(map[uint32]*simnet.Timer),
	}
}

// Arm schedules onTimeout(seq) to fire after timeout unless cancelled first.
func (tm *TimerManager) Arm(seq uint32, timeout time.Duration, onTimeout func(seq uint32)) {
	if old, ok := tm.armed[seq]; ok {
		tm.sched.Cancel(old)
	}
	var t *simnet.Timer
	t = tm.sched.After(timeout, func() {
		// Forget the handle before the handler runs so a Cancel from inside
		// the handler stays a no-op.
		if tm.armed[seq] == t {
			delete(tm.armed, seq)
		}
		onTimeout(seq)
	})
	tm.armed[seq] = t
}

// Cancel disarms the timer for seq, if any.
func (tm *TimerManager) Cancel(seq uint32) {
	if t, ok := tm.armed[seq]; ok {
		tm.sched.Cancel(t)
		delete(tm.armed, seq)
	}
}

// CancelAll disarms every outstanding timer. Sessions must call it on stop;
// a timer left armed would fire into a stopped session.
func (tm *TimerManager) CancelAll() {
	for seq, t := range tm.armed {
		tm.sched.Cancel(t)
		delete(tm.armed, seq)
	}
}

// Armed reports whether a timer is outstanding for seq.
func (tm *TimerManager) Armed(seq uint32) bool {
	_, ok := tm.armed[seq]
	return ok
}
