package simnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVirtualLoopRunsInFireOrder(t *testing.T) {
	loop := NewLoop()
	epoch := loop.Now()

	var order []int
	loop.After(30*time.Millisecond, func() { order = append(order, 30) })
	loop.After(10*time.Millisecond, func() { order = append(order, 10) })
	loop.After(20*time.Millisecond, func() { order = append(order, 20) })

	loop.Run()
	require.Equal(t, []int{10, 20, 30}, order)
	require.Equal(t, epoch.Add(30*time.Millisecond), loop.Now())
}

func TestVirtualLoopTieBreakIsInsertionOrder(t *testing.T) {
	loop := NewLoop()

	var order []string
	loop.After(time.Millisecond, func() { order = append(order, "first") })
	loop.After(time.Millisecond, func() { order = append(order, "second") })

	loop.Run()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestCancelIsIdempotent(t *testing.T) {
	loop := NewLoop()

	fired := 0
	keep := loop.After(time.Millisecond, func() { fired++ })
	drop := loop.After(time.Millisecond, func() { fired += 100 })

	loop.Cancel(drop)
	loop.Cancel(drop) // already cancelled
	loop.Cancel(nil)

	loop.Run()
	require.Equal(t, 1, fired)

	loop.Cancel(keep) // already fired
	require.Equal(t, 1, fired)
}

func TestNestedScheduling(t *testing.T) {
	loop := NewLoop()

	var order []int
	loop.After(time.Millisecond, func() {
		order = append(order, 1)
		loop.After(time.Millisecond, func() { order = append(order, 2) })
	})

	loop.Run()
	require.Equal(t, []int{1, 2}, order)
}

func TestRunForStopsAtBound(t *testing.T) {
	loop := NewLoop()
	epoch := loop.Now()

	var order []int
	loop.After(10*time.Millisecond, func() { order = append(order, 10) })
	loop.After(50*time.Millisecond, func() { order = append(order, 50) })

	loop.RunFor(20 * time.Millisecond)
	require.Equal(t, []int{10}, order)
	require.Equal(t, epoch.Add(20*time.Millisecond), loop.Now())

	// The late event is still queued and runs on the next bound.
	loop.RunFor(40 * time.Millisecond)
	require.Equal(t, []int{10, 50}, order)
}

func TestRealLoopFiresAndStops(t *testing.T) {
	loop := NewRealLoop()

	fired := false
	loop.After(5*time.Millisecond, func() {
		fired = true
		loop.Stop()
	})

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real loop did not stop")
	}
	require.True(t, fired)
}

func TestRealLoopPostFromOtherGoroutine(t *testing.T) {
	loop := NewRealLoop()

	ran := make(chan struct{})
	go loop.Post(func() {
		close(ran)
		loop.Stop()
	})

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted callback never ran")
	}
	<-ran
}
