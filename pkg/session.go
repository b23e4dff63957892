package protocol

import "rdt-sim/simnet"

// Session is the lifecycle contract shared by sender and receiver variants.
// HandleEvent is the single entry point for everything the channel delivers;
// it must only be invoked from the scheduler loop.
type Session interface {
	Start() error
	Stop()
	HandleEvent(simnet.Event)
}
