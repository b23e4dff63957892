package simnet

import (
	"math/rand/v2"
	"net/netip"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Link is an in-memory point-to-point channel between attached endpoints.
// Every send rolls against ErrorRate and is either dropped silently (a lost
// segment on the wire) or delivered after the propagation delay. Delivery is
// message-atomic: a segment arrives whole or not at all.
type Link struct {
	loop      *Loop
	delay     time.Duration
	errorRate float64
	rng       *rand.Rand
	logger    *zap.SugaredLogger
	endpoints map[netip.AddrPort]DispatchFunc
}

// NewLink creates a link driven by loop. errorRate is the per-segment drop
// probability in [0, 1); seed makes the drop rolls reproducible.
func NewLink(loop *Loop, delay time.Duration, errorRate float64, seed uint64, logger *zap.SugaredLogger) *Link {
	return &Link{
		loop:      loop,
		delay:     delay,
		errorRate: errorRate,
		rng:       rand.New(rand.NewPCG(seed, seed)),
		logger:    logger,
		endpoints: make(map[netip.AddrPort]DispatchFunc),
	}
}

// Attach binds addr to dispatch and returns the endpoint used to send from
// that address. Attach before running the loop; the endpoint map is not
// synchronized against in-flight deliveries.
func (l *Link) Attach(addr netip.AddrPort, dispatch DispatchFunc) *LinkPort {
	l.endpoints[addr] = dispatch
	return &LinkPort{link: l, local: addr}
}

// Detach unbinds addr. In-flight segments addressed to it are discarded on
// delivery.
func (l *Link) Detach(addr netip.AddrPort) {
	delete(l.endpoints, addr)
}

// LinkPort is one attached side of a Link.
type LinkPort struct {
	link  *Link
	local netip.AddrPort
}

func (p *LinkPort) LocalAddr() netip.AddrPort { return p.local }

func (p *LinkPort) Close() error {
	p.link.Detach(p.local)
	return nil
}

// Send enqueues b for delivery to the endpoint attached at to. A failed
// error-rate roll drops the segment without an error: the wire accepted it
// and lost it. Sending to an unattached address is a send failure.
func (p *LinkPort) Send(to netip.AddrPort, b []byte) error {
	l := p.link
	dispatch, ok := l.endpoints[to]
	if !ok {
		return errors.Errorf("link: no endpoint attached at %s", to)
	}
	if l.errorRate > 0 && l.rng.Float64() < l.errorRate {
		l.logger.Debugw("segment lost on link", "from", p.local, "to", to, "size", len(b))
		return nil
	}
	buf := append([]byte(nil), b...)
	from := p.local
	sentAt := l.loop.Now()
	l.loop.After(l.delay, func() {
		if _, still := l.endpoints[to]; !still {
			return
		}
		dispatch(Received{Bytes: buf, From: from, SentAt: sentAt})
	})
	return nil
}
