package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// HeaderLen is the fixed wire header size: sequence number (4 bytes),
// ack number (4 bytes), isAck flag (1 byte). Multi-byte fields are
// big-endian.
const HeaderLen = 9

// ErrMalformedSegment is returned by Decode for byte slices that cannot hold
// a full header or carry an unknown flag value.
var ErrMalformedSegment = errors.New("malformed segment")

// Segment is exactly one of Data(SeqNum, Payload) or Ack(AckNum). AckNum is
// only meaningful when IsAck is set; Payload is only present on data
// segments. Segments are immutable once constructed.
type Segment struct {
	SeqNum  uint32
	AckNum  uint32
	IsAck   bool
	Payload []byte
}

// NewData constructs a data segment carrying the given payload.
func NewData(seq uint32, payload []byte) Segment {
	return Segment{SeqNum: seq, Payload: payload}
}

// NewAck constructs an acknowledgment for the given sequence number.
func NewAck(ack uint32) Segment {
	return Segment{AckNum: ack, IsAck: true}
}

// Encode serializes the segment into its wire representation.
func (s Segment) Encode() []byte {
	buf := make([]byte, HeaderLen, HeaderLen+len(s.Payload))
	binary.BigEndian.PutUint32(buf[0:4], s.SeqNum)
	binary.BigEndian.PutUint32(buf[4:8], s.AckNum)
	if s.IsAck {
		buf[8] = 1
		return buf
	}
	return append(buf, s.Payload...)
}

// Decode parses a segment out of b. It fails with ErrMalformedSegment when b
// is shorter than the header or the flag byte is neither 0 nor 1. The payload
// is copied, so the caller may reuse b.
func Decode(b []byte) (Segment, error) {
	if len(b) < HeaderLen {
		return Segment{}, errors.Wrapf(ErrMalformedSegment, "got %d bytes, need at least %d", len(b), HeaderLen)
	}
	seg := Segment{
		SeqNum: binary.BigEndian.Uint32(b[0:4]),
		AckNum: binary.BigEndian.Uint32(b[4:8]),
	}
	switch b[8] {
	case 0:
		seg.Payload = append([]byte(nil), b[HeaderLen:]...)
	case 1:
		seg.IsAck = true
	default:
		return Segment{}, errors.Wrapf(ErrMalformedSegment, "unknown flag byte %#x", b[8])
	}
	return seg, nil
}

func (s Segment) String() string {
	if s.IsAck {
		return fmt.Sprintf("Ack{ack=%d}", s.AckNum)
	}
	return fmt.Sprintf("Data{seq=%d, payload=%d bytes}", s.SeqNum, len(s.Payload))
}
