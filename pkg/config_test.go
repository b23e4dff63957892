package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rdt-sim/segment"
)

func TestDefaultConfigsValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, DefaultRateConfig().Validate())
	require.Equal(t, 50*time.Millisecond, DefaultRateConfig().Interval)
	require.Equal(t, time.Second, DefaultConfig().Interval)
}

func TestPayloadSizeExcludesHeader(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, uint32(1024-segment.HeaderLen), cfg.PayloadSize())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"packet smaller than header": func(c *Config) { c.PacketSize = segment.HeaderLen },
		"zero timeout":               func(c *Config) { c.Timeout = 0 },
		"zero interval":              func(c *Config) { c.Interval = 0 },
		"zero min interval":          func(c *Config) { c.MinInterval = 0 },
		"zero cwnd":                  func(c *Config) { c.InitialCwnd = 0 },
		"ssthresh below cwnd":        func(c *Config) { c.InitialSsthresh = c.InitialCwnd - 1 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		require.Error(t, cfg.Validate(), name)
	}
}
