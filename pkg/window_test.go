package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestWindow(stats *Stats) *AIMDWindow {
	return NewAIMDWindow(DefaultRateConfig(), stats, testLogger())
}

// drive feeds OnSend the counts from..to inclusive, the way a sender reports
// its running total.
func drive(w *AIMDWindow, from, to uint32) {
	for n := from; n <= to; n++ {
		w.OnSend(n)
	}
}

func TestSlowStartGrowsByTwoEveryFifteenthSend(t *testing.T) {
	w := newTestWindow(NewStats())
	require.Equal(t, uint32(4), w.Cwnd())
	require.Equal(t, PhaseSlowStart, w.Phase())

	drive(w, 1, 15)
	require.Equal(t, uint32(6), w.Cwnd())

	drive(w, 16, 30)
	require.Equal(t, uint32(8), w.Cwnd())
	require.Equal(t, PhaseSlowStart, w.Phase())
}

func TestSlowStartCapsAtSsthreshAndFlipsPhase(t *testing.T) {
	cfg := DefaultRateConfig()
	cfg.InitialCwnd = 31
	cfg.InitialSsthresh = 32
	w := NewAIMDWindow(cfg, NewStats(), testLogger())

	w.OnSend(15)
	require.Equal(t, uint32(32), w.Cwnd())
	require.Equal(t, PhaseCongestionAvoidance, w.Phase())

	// Linear growth from here on.
	w.OnSend(30)
	require.Equal(t, uint32(33), w.Cwnd())
}

func TestSimulatedLossAtFortiethSend(t *testing.T) {
	stats := NewStats()
	w := newTestWindow(stats)

	drive(w, 1, 39)
	require.Zero(t, stats.LostSegments)
	prevCwnd := w.Cwnd()
	require.Equal(t, uint32(8), prevCwnd) // grew at 15 and 30

	w.OnSend(40)
	require.Equal(t, uint32(4), w.Cwnd())
	require.Equal(t, max(prevCwnd/2, uint32(4)), w.Ssthresh())
	require.Equal(t, PhaseSlowStart, w.Phase())
	require.Equal(t, uint32(2), stats.LostSegments)
}

func TestWindowFloorsNeverViolated(t *testing.T) {
	stats := NewStats()
	w := newTestWindow(stats)

	for n := uint32(1); n <= 500; n++ {
		w.OnSend(n)
		require.GreaterOrEqual(t, w.Cwnd(), uint32(4), "after send %d", n)
		require.GreaterOrEqual(t, w.Ssthresh(), uint32(4), "after send %d", n)
	}
}

func TestIntervalIsInverseCwndClampedAtMinimum(t *testing.T) {
	w := newTestWindow(NewStats())
	require.Equal(t, 250*time.Millisecond, w.Interval()) // 1s / 4

	cfg := DefaultRateConfig()
	cfg.InitialCwnd = 5000
	cfg.InitialSsthresh = 5000
	wide := NewAIMDWindow(cfg, NewStats(), testLogger())
	require.Equal(t, cfg.MinInterval, wide.Interval())
}

func TestFixedIntervalIsConstant(t *testing.T) {
	f := FixedInterval{D: time.Second}
	f.OnSend(40)
	require.Equal(t, time.Second, f.Interval())
}
