package protocol

import (
	"go.uber.org/zap"

	"rdt-sim/segment"
	"rdt-sim/simnet"
)

// Receiver accepts data segments strictly in order and acknowledges each one
// back to its origin. There is no reordering buffer: a duplicate or
// out-of-order segment is dropped without an ACK, which leaves the sender's
// timeout path to retry. All methods must run on the scheduler loop.
type Receiver struct {
	endpoint simnet.Endpoint
	sched    simnet.Scheduler
	stats    *Stats
	logger   *zap.SugaredLogger

	expectedSeq uint32
	listening   bool
}

func NewReceiver(endpoint simnet.Endpoint, sched simnet.Scheduler, stats *Stats, logger *zap.SugaredLogger) *Receiver {
	return &Receiver{
		endpoint: endpoint,
		sched:    sched,
		stats:    stats,
		logger:   logger,
	}
}

func (r *Receiver) Start() error {
	r.listening = true
	r.logger.Infow("receiver started", "addr", r.endpoint.LocalAddr())
	return nil
}

func (r *Receiver) Stop() {
	r.listening = false
	r.logger.Infow("receiver stopped",
		"received", r.stats.SegmentsReceived,
		"bytes", r.stats.BytesReceived)
}

// ExpectedSeq is the next sequence number the receiver will accept.
func (r *Receiver) ExpectedSeq() uint32 { return r.expectedSeq }

// HandleEvent is the single dispatch point for channel events. A segment
// that fails to decode poisons only its own delivery.
func (r *Receiver) HandleEvent(ev simnet.Event) {
	switch ev := ev.(type) {
	case simnet.Received:
		if !r.listening {
			return
		}
		seg, err := segment.Decode(ev.Bytes)
		if err != nil {
			r.logger.Warnw("discarding undecodable segment", "err", err)
			return
		}
		r.onSegment(seg, ev)
	case simnet.SendFailed:
		r.stats.LostSegments++
		r.logger.Warnw("ack send failed", "err", ev.Err)
	}
}

func (r *Receiver) onSegment(seg segment.Segment, ev simnet.Received) {
	if seg.IsAck {
		// ACKs are sender-bound; the receiver role never consumes them.
		return
	}
	if seg.SeqNum != r.expectedSeq {
		r.logger.Infow("dropping out-of-order segment",
			"seq", seg.SeqNum, "expected", r.expectedSeq)
		return
	}

	r.stats.SegmentsReceived++
	r.stats.BytesReceived += uint64(len(seg.Payload))
	if !ev.SentAt.IsZero() {
		r.stats.recordDelay(r.sched.Now().Sub(ev.SentAt))
	}
	r.expectedSeq++
	r.logger.Infow("accepted segment", "seq", seg.SeqNum)

	ack := segment.NewAck(seg.SeqNum)
	if err := r.endpoint.Send(ev.From, ack.Encode()); err != nil {
		r.HandleEvent(simnet.SendFailed{Err: err})
	}
}
