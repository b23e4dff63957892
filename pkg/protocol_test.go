package protocol

import (
	"net/netip"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rdt-sim/simnet"
)

var (
	testClientAddr = netip.MustParseAddrPort("10.1.1.1:9")
	testServerAddr = netip.MustParseAddrPort("10.1.1.2:9")

	errSendRejected = errors.New("send rejected")
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// filterEndpoint drops outbound messages the filter claims, simulating loss
// on the wire: Send reports success and nothing is delivered.
type filterEndpoint struct {
	simnet.Endpoint
	drop func(b []byte) bool
}

func (f *filterEndpoint) Send(to netip.AddrPort, b []byte) error {
	if f.drop != nil && f.drop(b) {
		return nil
	}
	return f.Endpoint.Send(to, b)
}

// captureEndpoint records every send instead of delivering it.
type captureEndpoint struct {
	local netip.AddrPort
	sent  []capturedSend
	err   error // returned from Send when set
}

type capturedSend struct {
	to netip.AddrPort
	b  []byte
}

func (c *captureEndpoint) Send(to netip.AddrPort, b []byte) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, capturedSend{to: to, b: append([]byte(nil), b...)})
	return nil
}

func (c *captureEndpoint) LocalAddr() netip.AddrPort { return c.local }
func (c *captureEndpoint) Close() error              { return nil }
