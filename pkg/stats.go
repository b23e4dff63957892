package protocol

import "time"

// Stats accumulates counters for one simulation run. Create a fresh instance
// per run and hand it to every session on that run's loop; all sessions
// execute on the single loop goroutine, so plain fields are safe.
type Stats struct {
	SegmentsSent     uint32
	SegmentsReceived uint32
	BytesSent        uint64
	BytesReceived    uint64
	Retransmissions  uint32
	LostSegments     uint32
	DelaySum         time.Duration
	DelaySamples     uint32
}

func NewStats() *Stats {
	return &Stats{}
}

// Reset zeroes every counter. Runs reusing an accumulator must call it
// before starting.
func (s *Stats) Reset() {
	*s = Stats{}
}

func (s *Stats) recordDelay(d time.Duration) {
	s.DelaySum += d
	s.DelaySamples++
}

// Snapshot is the read-only view handed to collaborators once a run has
// stopped.
type Snapshot struct {
	SegmentsSent     uint32
	SegmentsReceived uint32
	BytesSent        uint64
	BytesReceived    uint64
	Retransmissions  uint32
	LostSegments     uint32
	AverageDelay     time.Duration
	Throughput       float64 // effective bits per second over the run
	LossRate         float64 // lost or retransmitted fraction of sends
}

// Snapshot derives the rates over elapsed run time. Sample it only after the
// run completes.
func (s *Stats) Snapshot(elapsed time.Duration) Snapshot {
	snap := Snapshot{
		SegmentsSent:     s.SegmentsSent,
		SegmentsReceived: s.SegmentsReceived,
		BytesSent:        s.BytesSent,
		BytesReceived:    s.BytesReceived,
		Retransmissions:  s.Retransmissions,
		LostSegments:     s.LostSegments,
	}
	if s.DelaySamples > 0 {
		snap.AverageDelay = s.DelaySum / time.Duration(s.DelaySamples)
	}
	if elapsed > 0 {
		snap.Throughput = float64(s.BytesSent) * 8 / elapsed.Seconds()
	}
	if s.SegmentsSent > 0 {
		snap.LossRate = float64(s.Retransmissions+s.LostSegments) / float64(s.SegmentsSent)
	}
	return snap
}
