package protocol

import (
	"time"

	"go.uber.org/zap"
)

// Phase of the simulated congestion controller.
type Phase string

const (
	PhaseSlowStart           Phase = "SLOW_START"
	PhaseCongestionAvoidance Phase = "CONGESTION_AVOIDANCE"
)

// minWindow is the floor for both cwnd and ssthresh.
const minWindow = 4

// A RateController owns the parameter governing how fast a sender may
// transmit. OnSend observes every successful send; Interval returns the
// minimum delay before the next one.
type RateController interface {
	OnSend(totalSent uint32)
	Interval() time.Duration
}

// FixedInterval is the stop-and-wait design point: a constant configured
// interval and no window at all. Reliability alone governs throughput.
type FixedInterval struct {
	D time.Duration
}

func (f FixedInterval) OnSend(uint32)           {}
func (f FixedInterval) Interval() time.Duration { return f.D }

// AIMDWindow is the open-loop cwnd simulation: the window grows on a
// send-count trigger and collapses on a periodic simulated-loss trigger,
// with no real congestion feedback. The growth shape is AIMD-like (additive
// slow start capped at ssthresh, then linear avoidance, multiplicative
// decrease on loss), but the triggers are synthetic; swapping in a
// feedback-driven controller means replacing only this type.
type AIMDWindow struct {
	cwnd      uint32
	ssthresh  uint32
	phase     Phase
	growEvery uint32 // grow the window on every Nth send
	lossEvery uint32 // simulate a loss on every Mth send
	minIvl    time.Duration
	stats     *Stats
	logger    *zap.SugaredLogger
}

func NewAIMDWindow(cfg Config, stats *Stats, logger *zap.SugaredLogger) *AIMDWindow {
	return &AIMDWindow{
		cwnd:      cfg.InitialCwnd,
		ssthresh:  cfg.InitialSsthresh,
		phase:     PhaseSlowStart,
		growEvery: 15,
		lossEvery: 40,
		minIvl:    cfg.MinInterval,
		stats:     stats,
		logger:    logger,
	}
}

func (w *AIMDWindow) OnSend(totalSent uint32) {
	if totalSent == 0 {
		return
	}
	if totalSent%w.growEvery == 0 {
		w.grow()
	}
	if totalSent%w.lossEvery == 0 {
		w.simulateLoss()
	}
}

func (w *AIMDWindow) grow() {
	if w.phase == PhaseSlowStart {
		w.cwnd = min(w.cwnd+2, w.ssthresh)
		if w.cwnd >= w.ssthresh {
			w.phase = PhaseCongestionAvoidance
			w.logger.Infow("entering congestion avoidance", "cwnd", w.cwnd)
		}
	} else {
		w.cwnd++
	}
	w.logger.Infow("window grew", "cwnd", w.cwnd, "interval", w.Interval())
}

// simulateLoss halves ssthresh (not below the floor), resets the window, and
// credits two lost segments to the run statistics. The loss is synthetic and
// independent of anything the channel actually dropped.
func (w *AIMDWindow) simulateLoss() {
	w.ssthresh = max(w.cwnd/2, minWindow)
	w.cwnd = minWindow
	w.phase = PhaseSlowStart
	w.stats.LostSegments += 2
	w.logger.Infow("simulated loss", "ssthresh", w.ssthresh, "cwnd", w.cwnd)
}

// Interval is 1/cwnd seconds, clamped at the configured minimum.
func (w *AIMDWindow) Interval() time.Duration {
	ivl := time.Second / time.Duration(w.cwnd)
	if ivl < w.minIvl {
		ivl = w.minIvl
	}
	return ivl
}

func (w *AIMDWindow) Cwnd() uint32     { return w.cwnd }
func (w *AIMDWindow) Ssthresh() uint32 { return w.ssthresh }
func (w *AIMDWindow) Phase() Phase     { return w.phase }
