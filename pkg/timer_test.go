package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rdt-sim/simnet"
)

func TestTimerFiresWithItsSequenceNumber(t *testing.T) {
	loop := simnet.NewLoop()
	tm := NewTimerManager(loop)

	var fired []uint32
	tm.Arm(7, 10*time.Millisecond, func(seq uint32) { fired = append(fired, seq) })
	require.True(t, tm.Armed(7))

	loop.Run()
	require.Equal(t, []uint32{7}, fired)
	require.False(t, tm.Armed(7))
}

func TestCancelPreventsFire(t *testing.T) {
	loop := simnet.NewLoop()
	tm := NewTimerManager(loop)

	fired := false
	tm.Arm(1, 10*time.Millisecond, func(uint32) { fired = true })
	tm.Cancel(1)

	loop.Run()
	require.False(t, fired)
}

func TestCancelIsIdempotentAndSafeAfterFire(t *testing.T) {
	loop := simnet.NewLoop()
	tm := NewTimerManager(loop)

	count := 0
	tm.Arm(1, 10*time.Millisecond, func(uint32) { count++ })

	tm.Cancel(2) // never armed
	loop.Run()
	tm.Cancel(1) // already fired
	tm.Cancel(1)

	require.Equal(t, 1, count)
}

func TestRearmReplacesOutstandingTimer(t *testing.T) {
	loop := simnet.NewLoop()
	tm := NewTimerManager(loop)

	count := 0
	tm.Arm(1, 10*time.Millisecond, func(uint32) { count++ })
	tm.Arm(1, 20*time.Millisecond, func(uint32) { count++ })

	loop.Run()
	require.Equal(t, 1, count, "exactly one timer may be armed per sequence number")
}

func TestCancelAllDisarmsEverything(t *testing.T) {
	loop := simnet.NewLoop()
	tm := NewTimerManager(loop)

	fired := 0
	for seq := uint32(0); seq < 5; seq++ {
		tm.Arm(seq, 10*time.Millisecond, func(uint32) { fired++ })
	}
	tm.CancelAll()

	loop.Run()
	require.Zero(t, fired)
}

func TestRearmFromInsideHandler(t *testing.T) {
	loop := simnet.NewLoop()
	tm := NewTimerManager(loop)

	count := 0
	var handler func(uint32)
	handler = func(seq uint32) {
		count++
		if count < 3 {
			tm.Arm(seq, 10*time.Millisecond, handler)
		}
	}
	tm.Arm(1, 10*time.Millisecond, handler)

	loop.Run()
	require.Equal(t, 3, count)
}
