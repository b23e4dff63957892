package main

import (
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	protocol "rdt-sim/pkg"
	"rdt-sim/simnet"
)

// rdtudp runs one endpoint of the protocol over real UDP sockets: a
// receiver with -role recv, a stop-and-wait sender with -role send.
func main() {
	role := flag.String("role", "recv", "send or recv")
	laddr := flag.String("laddr", "0.0.0.0:9000", "local UDP address to bind")
	raddr := flag.String("raddr", "", "peer UDP address (send role)")
	maxSegments := flag.Uint("maxSegments", 100, "segments to send")
	packetSize := flag.Uint("packetSize", 1024, "total segment size in bytes, header included")
	interval := flag.Duration("interval", time.Second, "delay between sends")
	timeout := flag.Duration("timeout", 500*time.Millisecond, "ACK wait before retransmitting")
	verbose := flag.Bool("verbose", false, "log every protocol event")
	flag.Parse()

	logCfg := zap.NewDevelopmentConfig()
	if !*verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger := zap.Must(logCfg.Build())
	defer logger.Sync()
	sugar := logger.Sugar()

	local, err := netip.ParseAddrPort(*laddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -laddr %q: %v\n", *laddr, err)
		os.Exit(2)
	}

	cfg := protocol.DefaultConfig()
	cfg.MaxSegments = uint32(*maxSegments)
	cfg.PacketSize = uint32(*packetSize)
	cfg.Interval = *interval
	cfg.Timeout = *timeout
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "bad configuration: %v\n", err)
		os.Exit(2)
	}

	loop := simnet.NewRealLoop()
	stats := protocol.NewStats()

	var session protocol.Session
	endpoint, err := simnet.BindUDP(loop, local, func(ev simnet.Event) {
		session.HandleEvent(ev)
	}, sugar)
	if err != nil {
		// Cannot acquire the local endpoint: abort the run.
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer endpoint.Close()

	switch *role {
	case "recv":
		session = protocol.NewReceiver(endpoint, loop, stats, sugar)
	case "send":
		peer, err := netip.ParseAddrPort(*raddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad -raddr %q: %v\n", *raddr, err)
			os.Exit(2)
		}
		sender := protocol.NewSender(cfg, endpoint, peer, loop, stats, sugar)
		sender.OnStopped = loop.Stop
		session = sender
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		loop.Post(func() {
			session.Stop()
			loop.Stop()
		})
	}()

	start := time.Now()
	loop.Post(func() { session.Start() })
	loop.Run()

	printStats(stats.Snapshot(time.Since(start)))
}

func printStats(snap protocol.Snapshot) {
	fmt.Println("\n=== RUN STATISTICS ===")
	fmt.Printf("Segments sent: %d\n", snap.SegmentsSent)
	fmt.Printf("Segments received: %d\n", snap.SegmentsReceived)
	fmt.Printf("Bytes sent: %d\n", snap.BytesSent)
	fmt.Printf("Bytes received: %d\n", snap.BytesReceived)
	fmt.Printf("Retransmissions: %d\n", snap.Retransmissions)
	fmt.Printf("Lost segments: %d\n", snap.LostSegments)
	fmt.Printf("Effective throughput: %.3f Mbps\n", snap.Throughput/1e6)
	fmt.Printf("Loss rate: %.1f%%\n", snap.LossRate*100)
}
