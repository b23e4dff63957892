package simnet

import (
	"net/netip"
	"time"
)

// Event is a tagged channel event delivered to a session's dispatch
// function. The closed set of variants keeps all channel-to-session
// interaction on a single entry point instead of per-concern callbacks.
type Event interface {
	isEvent()
}

// Received carries one message-atomic delivery. SentAt is the channel-side
// send timestamp used for delay accounting; it is the zero time when the
// channel cannot stamp sends (real sockets have no shared clock).
type Received struct {
	Bytes  []byte
	From   netip.AddrPort
	SentAt time.Time
}

// SendFailed reports a send the channel rejected or could not enqueue.
type SendFailed struct {
	Err error
}

func (Received) isEvent()   {}
func (SendFailed) isEvent() {}

// DispatchFunc receives every event addressed to one attached endpoint.
type DispatchFunc func(Event)

// Endpoint is one attached side of a channel.
type Endpoint interface {
	Send(to netip.AddrPort, b []byte) error
	LocalAddr() netip.AddrPort
	Close() error
}
