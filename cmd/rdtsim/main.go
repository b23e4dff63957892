package main

import (
	"flag"
	"fmt"
	"net/netip"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	protocol "rdt-sim/pkg"
	"rdt-sim/simnet"
)

// Virtual addresses of the two nodes on the point-to-point link.
var (
	clientAddr = netip.MustParseAddrPort("10.1.1.1:9")
	serverAddr = netip.MustParseAddrPort("10.1.1.2:9")
)

func main() {
	mode := flag.String("mode", "reliable", "reliable (stop-and-wait ARQ) or rate (open-loop window control)")
	errorRate := flag.Float64("errorRate", 0.1, "per-segment drop probability on the link")
	maxSegments := flag.Uint("maxSegments", 0, "segments to send (0 = mode default)")
	packetSize := flag.Uint("packetSize", 1024, "total segment size in bytes, header included")
	interval := flag.Duration("interval", 0, "delay between sends (0 = mode default)")
	timeout := flag.Duration("timeout", 500*time.Millisecond, "ACK wait before retransmitting")
	delay := flag.Duration("delay", 2*time.Millisecond, "link propagation delay")
	duration := flag.Duration("duration", 30*time.Second, "simulated time bound")
	seed := flag.Uint64("seed", 1, "seed for the link's drop rolls")
	verbose := flag.Bool("verbose", false, "log every protocol event")
	flag.Parse()

	logger := buildLogger(*verbose)
	defer logger.Sync()
	sugar := logger.Sugar()

	var cfg protocol.Config
	switch *mode {
	case "reliable":
		cfg = protocol.DefaultConfig()
	case "rate":
		cfg = protocol.DefaultRateConfig()
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if *maxSegments > 0 {
		cfg.MaxSegments = uint32(*maxSegments)
	}
	cfg.PacketSize = uint32(*packetSize)
	if *interval > 0 {
		cfg.Interval = *interval
	}
	cfg.Timeout = *timeout
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "bad configuration: %v\n", err)
		os.Exit(2)
	}
	if *errorRate < 0 || *errorRate >= 1 {
		fmt.Fprintln(os.Stderr, "errorRate must be in [0, 1)")
		os.Exit(2)
	}

	fmt.Println("Starting simulation with parameters:")
	fmt.Printf("  Mode: %s\n", *mode)
	fmt.Printf("  Error rate: %.1f%%\n", *errorRate*100)
	fmt.Printf("  Max segments: %d\n", cfg.MaxSegments)
	fmt.Printf("  Packet size: %d bytes\n", cfg.PacketSize)
	fmt.Printf("  Interval: %s\n", cfg.Interval)
	fmt.Printf("  Timeout: %s\n", cfg.Timeout)
	fmt.Printf("  Simulation time: %s\n", *duration)

	loop := simnet.NewLoop()
	link := simnet.NewLink(loop, *delay, *errorRate, *seed, sugar)
	stats := protocol.NewStats()

	var receiver *protocol.Receiver
	serverPort := link.Attach(serverAddr, func(ev simnet.Event) { receiver.HandleEvent(ev) })
	receiver = protocol.NewReceiver(serverPort, loop, stats, sugar)

	var sender protocol.Session
	switch *mode {
	case "reliable":
		var s *protocol.Sender
		clientPort := link.Attach(clientAddr, func(ev simnet.Event) { s.HandleEvent(ev) })
		s = protocol.NewSender(cfg, clientPort, serverAddr, loop, stats, sugar)
		sender = s
	case "rate":
		var s *protocol.RateSender
		clientPort := link.Attach(clientAddr, func(ev simnet.Event) { s.HandleEvent(ev) })
		window := protocol.NewAIMDWindow(cfg, stats, sugar)
		s = protocol.NewRateSender(cfg, clientPort, serverAddr, loop, window, stats, sugar)
		sender = s
	}

	start := loop.Now()
	receiver.Start()
	sender.Start()
	loop.RunFor(*duration)
	sender.Stop()
	receiver.Stop()
	elapsed := loop.Now().Sub(start)

	printStats(stats.Snapshot(elapsed), elapsed)
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return zap.Must(cfg.Build())
}

func printStats(snap protocol.Snapshot, elapsed time.Duration) {
	fmt.Println("\n=== RUN STATISTICS ===")
	fmt.Printf("Segments sent: %d\n", snap.SegmentsSent)
	fmt.Printf("Segments received: %d\n", snap.SegmentsReceived)
	fmt.Printf("Bytes sent: %d\n", snap.BytesSent)
	fmt.Printf("Bytes received: %d\n", snap.BytesReceived)
	fmt.Printf("Retransmissions: %d\n", snap.Retransmissions)
	fmt.Printf("Lost segments: %d\n", snap.LostSegments)
	fmt.Printf("Elapsed (simulated): %s\n", elapsed)
	fmt.Printf("Mean delay: %.3f ms\n", float64(snap.AverageDelay.Microseconds())/1000)
	fmt.Printf("Effective throughput: %.3f Mbps\n", snap.Throughput/1e6)
	fmt.Printf("Loss rate: %.1f%%\n", snap.LossRate*100)
}
