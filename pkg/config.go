package protocol

import (
	"time"

	"github.com/pkg/errors"

	"rdt-sim/segment"
)

// Config carries the knobs shared by both sender variants. Zero values are
// not usable; start from DefaultConfig or DefaultRateConfig.
type Config struct {
	MaxSegments     uint32        // distinct data segments to send before stopping
	PacketSize      uint32        // total segment size on the wire, header included
	Interval        time.Duration // delay between an ACK and the next send (fixed-rate value in the rate variant)
	Timeout         time.Duration // ACK wait before retransmitting
	MinInterval     time.Duration // floor for the window-derived send interval
	InitialCwnd     uint32
	InitialSsthresh uint32
}

// DefaultConfig is the stop-and-wait tuning: one segment per second, half a
// second of ACK wait.
func DefaultConfig() Config {
	return Config{
		MaxSegments:     100,
		PacketSize:      1024,
		Interval:        time.Second,
		Timeout:         500 * time.Millisecond,
		MinInterval:     time.Millisecond,
		InitialCwnd:     4,
		InitialSsthresh: 32,
	}
}

// DefaultRateConfig is the open-loop tuning: the interval starts at 50ms and
// is then governed by the window controller.
func DefaultRateConfig() Config {
	cfg := DefaultConfig()
	cfg.Interval = 50 * time.Millisecond
	return cfg
}

func (c Config) Validate() error {
	if c.PacketSize <= segment.HeaderLen {
		return errors.Errorf("packet size %d leaves no room for payload (header is %d bytes)", c.PacketSize, segment.HeaderLen)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.MinInterval <= 0 {
		return errors.New("minimum interval must be positive")
	}
	if c.InitialCwnd == 0 {
		return errors.New("initial cwnd must be at least 1")
	}
	if c.InitialSsthresh < c.InitialCwnd {
		return errors.New("initial ssthresh must not be below initial cwnd")
	}
	return nil
}

// PayloadSize is the data bytes per segment: packet size minus the header.
func (c Config) PayloadSize() uint32 {
	return c.PacketSize - segment.HeaderLen
}
