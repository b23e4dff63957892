package protocol

import (
	"net/netip"

	"go.uber.org/zap"

	"rdt-sim/segment"
	"rdt-sim/simnet"
)

// RateSender is the open-loop variant: it transmits continuously at the
// interval its controller dictates and never waits on per-segment
// acknowledgment. Window adjustment happens inside the controller, out of
// band of any ACK. All methods must run on the scheduler loop.
type RateSender struct {
	cfg        Config
	endpoint   simnet.Endpoint
	peer       netip.AddrPort
	sched      simnet.Scheduler
	controller RateController
	stats      *Stats
	logger     *zap.SugaredLogger

	state    SenderState
	nextSeq  uint32
	payload  []byte
	nextSend *simnet.Timer

	// OnStopped, when set, runs once after the sender reaches STOPPED.
	OnStopped func()
}

func NewRateSender(cfg Config, endpoint simnet.Endpoint, peer netip.AddrPort, sched simnet.Scheduler, controller RateController, stats *Stats, logger *zap.SugaredLogger) *RateSender {
	return &RateSender{
		cfg:        cfg,
		endpoint:   endpoint,
		peer:       peer,
		sched:      sched,
		controller: controller,
		stats:      stats,
		logger:     logger,
		state:      SenderIdle,
		payload:    make([]byte, cfg.PayloadSize()),
	}
}

// Start schedules the first transmission after the configured interval.
func (s *RateSender) Start() error {
	s.logger.Infow("rate sender started", "maxSegments", s.cfg.MaxSegments, "interval", s.cfg.Interval, "peer", s.peer)
	s.nextSend = s.sched.After(s.cfg.Interval, s.send)
	return nil
}

func (s *RateSender) Stop() {
	if s.state == SenderStopped {
		return
	}
	s.sched.Cancel(s.nextSend)
	s.state = SenderStopped
	s.logger.Infow("rate sender stopped",
		"sent", s.stats.SegmentsSent,
		"bytes", s.stats.BytesSent)
	if s.OnStopped != nil {
		s.OnStopped()
	}
}

func (s *RateSender) Done() bool {
	return s.state == SenderStopped
}

func (s *RateSender) State() SenderState { return s.state }

// HandleEvent ignores inbound segments: the receiver still acknowledges, but
// this variant sends on regardless.
func (s *RateSender) HandleEvent(ev simnet.Event) {
	switch ev := ev.(type) {
	case simnet.Received:
	case simnet.SendFailed:
		s.stats.LostSegments++
		s.logger.Warnw("send failed", "err", ev.Err)
	}
}

func (s *RateSender) send() {
	if s.state == SenderStopped {
		return
	}
	if s.nextSeq >= s.cfg.MaxSegments {
		s.logger.Infow("finished sending all segments", "count", s.cfg.MaxSegments)
		s.Stop()
		return
	}

	seg := segment.NewData(s.nextSeq, s.payload)
	b := seg.Encode()
	if err := s.endpoint.Send(s.peer, b); err != nil {
		s.HandleEvent(simnet.SendFailed{Err: err})
	} else {
		s.nextSeq++
		s.stats.SegmentsSent++
		s.stats.BytesSent += uint64(len(b))
		s.controller.OnSend(s.nextSeq)
		s.logger.Debugw("sent segment", "seq", seg.SeqNum, "interval", s.controller.Interval())
	}

	s.nextSend = s.sched.After(s.controller.Interval(), s.send)
}
