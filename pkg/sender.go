package protocol

import (
	"net/netip"
	"time"

	"go.uber.org/zap"

	"rdt-sim/segment"
	"rdt-sim/simnet"
)

// SenderState names follow the socket-state-string convention of the course
// stack this sender grew out of.
type SenderState string

const (
	SenderIdle        SenderState = "IDLE"
	SenderAwaitingAck SenderState = "AWAITING_ACK"
	SenderStopped     SenderState = "STOPPED"
)

// startupDelay is the gap between Start and the first transmission, giving
// the peer time to come up.
const startupDelay = 100 * time.Millisecond

// Sender is the stop-and-wait ARQ sender: at most one unacknowledged segment
// in flight, unconditional retransmission on timeout, no backoff and no
// retry ceiling. All methods must run on the scheduler loop.
type Sender struct {
	cfg      Config
	endpoint simnet.Endpoint
	peer     netip.AddrPort
	sched    simnet.Scheduler
	timers   *TimerManager
	stats    *Stats
	logger   *zap.SugaredLogger

	state      SenderState
	nextSeq    uint32
	pendingAck uint32
	pendingSet bool
	payload    []byte
	nextSend   *simnet.Timer

	// OnStopped, when set, runs once after the sender reaches STOPPED.
	OnStopped func()
}

func NewSender(cfg Config, endpoint simnet.Endpoint, peer netip.AddrPort, sched simnet.Scheduler, stats *Stats, logger *zap.SugaredLogger) *Sender {
	return &Sender{
		cfg:      cfg,
		endpoint: endpoint,
		peer:     peer,
		sched:    sched,
		timers:   NewTimerManager(sched),
		stats:    stats,
		logger:   logger,
		state:    SenderIdle,
		payload:  make([]byte, cfg.PayloadSize()),
	}
}

// Start schedules the first transmission.
func (s *Sender) Start() error {
	s.logger.Infow("sender started", "maxSegments", s.cfg.MaxSegments, "peer", s.peer)
	s.nextSend = s.sched.After(startupDelay, s.send)
	return nil
}

// Stop cancels all outstanding timers and makes the sender terminal. Any
// timer fire already in the queue becomes a no-op.
func (s *Sender) Stop() {
	if s.state == SenderStopped {
		return
	}
	s.sched.Cancel(s.nextSend)
	s.timers.CancelAll()
	s.pendingSet = false
	s.state = SenderStopped
	s.logger.Infow("sender stopped",
		"sent", s.stats.SegmentsSent,
		"retransmissions", s.stats.Retransmissions,
		"bytes", s.stats.BytesSent)
	if s.OnStopped != nil {
		s.OnStopped()
	}
}

// Done reports whether the sender has reached its terminal state.
func (s *Sender) Done() bool {
	return s.state == SenderStopped
}

func (s *Sender) State() SenderState { return s.state }

// HandleEvent is the single dispatch point for channel events.
func (s *Sender) HandleEvent(ev simnet.Event) {
	switch ev := ev.(type) {
	case simnet.Received:
		seg, err := segment.Decode(ev.Bytes)
		if err != nil {
			s.logger.Warnw("discarding undecodable segment", "err", err)
			return
		}
		if !seg.IsAck {
			// Data segments are never addressed to the sender role.
			return
		}
		s.handleAck(seg.AckNum)
	case simnet.SendFailed:
		s.stats.LostSegments++
		s.logger.Warnw("send failed", "err", ev.Err)
	}
}

func (s *Sender) send() {
	if s.state == SenderStopped {
		return
	}
	if s.nextSeq >= s.cfg.MaxSegments {
		s.logger.Infow("finished sending all segments", "count", s.cfg.MaxSegments)
		s.Stop()
		return
	}

	seq := s.nextSeq
	s.transmit(segment.NewData(seq, s.payload))
	s.pendingAck = seq
	s.pendingSet = true
	s.timers.Arm(seq, s.cfg.Timeout, s.onTimeout)
	s.state = SenderAwaitingAck
	s.nextSeq++
	s.logger.Infow("sent segment", "seq", seq)
}

// handleAck advances past the pending segment if the ACK matches it. ACKs
// for any other sequence number are stale (duplicates from before a
// retransmission) and ignored.
func (s *Sender) handleAck(ack uint32) {
	if s.state != SenderAwaitingAck || !s.pendingSet || ack != s.pendingAck {
		s.logger.Debugw("ignoring stale ack", "ack", ack)
		return
	}
	s.timers.Cancel(ack)
	s.pendingSet = false
	s.state = SenderIdle
	s.logger.Infow("received ack", "ack", ack)
	s.nextSend = s.sched.After(s.cfg.Interval, s.send)
}

// onTimeout retransmits the pending segment with unchanged payload. A fire
// for any other sequence number lost the race with a cancellation and does
// nothing.
func (s *Sender) onTimeout(seq uint32) {
	if s.state != SenderAwaitingAck || !s.pendingSet || seq != s.pendingAck {
		return
	}
	s.stats.Retransmissions++
	s.logger.Infow("ack timeout, retransmitting", "seq", seq)
	s.transmit(segment.NewData(seq, s.payload))
	s.timers.Arm(seq, s.cfg.Timeout, s.onTimeout)
}

func (s *Sender) transmit(seg segment.Segment) {
	b := seg.Encode()
	if err := s.endpoint.Send(s.peer, b); err != nil {
		// No state transition: the armed timer still governs the retry.
		s.HandleEvent(simnet.SendFailed{Err: err})
		return
	}
	s.stats.SegmentsSent++
	s.stats.BytesSent += uint64(len(b))
}
