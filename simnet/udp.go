package simnet

import (
	"net"
	"net/netip"

	ipv4header "github.com/brown-csci1680/iptcp-headers"
	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Protocol number claimed by segments inside the IPv4 framing. 143 is in the
// unassigned range, so stray traffic parsed off the socket is rejected here.
const segmentProtocolNum = 143

const udpReadBufSize = 65535

// UDPEndpoint carries segments between real hosts over UDP, framing each one
// in an IPv4 header the same way the virtual links of the course stack do.
// Inbound packets are posted onto the loop, so session dispatch stays
// single-threaded even though the socket reader is its own goroutine.
type UDPEndpoint struct {
	loop     *Loop
	conn     *net.UDPConn
	local    netip.AddrPort
	dispatch DispatchFunc
	logger   *zap.SugaredLogger
	closed   chan struct{}
}

// BindUDP acquires the local UDP endpoint and starts its reader. A bind
// failure is fatal to session startup; callers should abort the run.
func BindUDP(loop *Loop, laddr netip.AddrPort, dispatch DispatchFunc, logger *zap.SugaredLogger) (*UDPEndpoint, error) {
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(laddr))
	if err != nil {
		return nil, errors.Wrapf(err, "bind %s", laddr)
	}
	ep := &UDPEndpoint{
		loop:     loop,
		conn:     conn,
		local:    conn.LocalAddr().(*net.UDPAddr).AddrPort(),
		dispatch: dispatch,
		logger:   logger,
		closed:   make(chan struct{}),
	}
	go ep.readLoop()
	return ep, nil
}

func (ep *UDPEndpoint) LocalAddr() netip.AddrPort { return ep.local }

func (ep *UDPEndpoint) Close() error {
	close(ep.closed)
	return ep.conn.Close()
}

// Send wraps b in an IPv4 header and writes it to the peer.
func (ep *UDPEndpoint) Send(to netip.AddrPort, b []byte) error {
	hdr := ipv4header.IPv4Header{
		Version:  4,
		Len:      ipv4header.HeaderLen, // no IP options
		TOS:      0,
		TotalLen: ipv4header.HeaderLen + len(b),
		ID:       0,
		Flags:    0,
		FragOff:  0,
		TTL:      16,
		Protocol: segmentProtocolNum,
		Checksum: 0, // must be 0 until the checksum is computed
		Src:      ep.local.Addr(),
		Dst:      to.Addr(),
		Options:  []byte{},
	}
	headerBytes, err := hdr.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal IPv4 header")
	}
	hdr.Checksum = int(computeChecksum(headerBytes))
	headerBytes, err = hdr.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal IPv4 header")
	}

	buf := make([]byte, 0, len(headerBytes)+len(b))
	buf = append(buf, headerBytes...)
	buf = append(buf, b...)

	if _, err := ep.conn.WriteToUDP(buf, net.UDPAddrFromAddrPort(to)); err != nil {
		return errors.Wrapf(err, "send to %s", to)
	}
	return nil
}

func (ep *UDPEndpoint) readLoop() {
	buf := make([]byte, udpReadBufSize)
	for {
		n, from, err := ep.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ep.closed:
				return
			default:
			}
			ep.logger.Warnw("udp read failed", "err", err)
			continue
		}

		hdr, err := ipv4header.ParseHeader(buf[:n])
		if err != nil {
			ep.logger.Warnw("dropping packet with malformed IPv4 header", "from", from, "err", err)
			continue
		}
		if hdr.Protocol != segmentProtocolNum {
			ep.logger.Debugw("dropping packet with unexpected protocol", "protocol", hdr.Protocol)
			continue
		}
		if !validateChecksum(buf[:hdr.Len], uint16(hdr.Checksum)) {
			ep.logger.Warnw("dropping packet with bad IPv4 checksum", "from", from)
			continue
		}

		payload := append([]byte(nil), buf[hdr.Len:n]...)
		src := from.AddrPort()
		ep.loop.Post(func() {
			ep.dispatch(Received{Bytes: payload, From: src})
		})
	}
}

// computeChecksum returns the inverted ones-complement checksum of
// headerBytes, whose checksum field must still be zero.
func computeChecksum(headerBytes []byte) uint16 {
	return header.Checksum(headerBytes, 0) ^ 0xffff
}

// validateChecksum folds the full header (stored checksum included) with the
// stored checksum as the initial accumulator; ones-complement arithmetic
// reproduces the checksum exactly when the header is intact.
func validateChecksum(headerBytes []byte, fromHeader uint16) bool {
	return header.Checksum(headerBytes, fromHeader) == fromHeader
}
