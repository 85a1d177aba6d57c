// Command midiwire-send runs the sensing node: it decodes MIDI from a serial
// line (or an OS MIDI port, or a capture file), batches it into frames and
// sends them to midiwire-view.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chase3718/midiwire/internal/activity"
	"github.com/chase3718/midiwire/internal/config"
	"github.com/chase3718/midiwire/internal/logging"
	"github.com/chase3718/midiwire/internal/panel"
	"github.com/chase3718/midiwire/internal/sender"
	"github.com/chase3718/midiwire/internal/serialport"
	"github.com/chase3718/midiwire/internal/source"
	"github.com/chase3718/midiwire/internal/transport"
)

// watchdogEvery is how many quiet read timeouts pass between idle reports.
const watchdogEvery = 50

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	pretty := flag.Bool("pretty", false, "colourised log output")
	input := flag.String("input", "", "input source: serial, port or replay")
	serialDev := flag.String("serial", "", "MIDI serial device")
	baud := flag.Int("baud", 0, "MIDI serial baud rate")
	replay := flag.String("replay", "", "raw MIDI capture file to replay")
	preferred := flag.String("prefer", "", "comma separated MIDI port name patterns to prefer")
	link := flag.String("transport", "", "link to the display node: udp or serial")
	peer := flag.String("peer", "", "display node address (udp)")
	linkDev := flag.String("link-serial", "", "radio modem device (serial link)")
	linkBaud := flag.Int("link-baud", 0, "radio modem baud rate")
	tick := flag.Int("tick", 0, "indicator decay tick in milliseconds")
	lampTest := flag.Bool("lamp-test", true, "light every indicator at startup")
	tui := flag.Bool("tui", false, "show the indicator panel")
	list := flag.Bool("list", false, "list serial devices and exit")
	saveConfig := flag.Bool("save-config", false, "write the effective configuration to the config file and exit")
	flag.Parse()

	if *list {
		ports, err := serialport.List()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug = *debug
		case "pretty":
			cfg.Pretty = *pretty
		case "input":
			cfg.Input = *input
		case "serial":
			cfg.Serial.Device = *serialDev
		case "baud":
			cfg.Serial.Baud = *baud
		case "replay":
			cfg.Replay = *replay
			if !isSet("input") {
				cfg.Input = config.InputReplay
			}
		case "prefer":
			cfg.Port.Preferred = strings.Split(*preferred, ",")
		case "transport":
			cfg.Link.Transport = *link
		case "peer":
			cfg.Link.Peer = *peer
		case "link-serial":
			cfg.Link.Device = *linkDev
		case "link-baud":
			cfg.Link.Baud = *linkBaud
		case "tick":
			cfg.TickMS = *tick
		case "lamp-test":
			cfg.LampTest = *lampTest
		}
	})

	if *saveConfig {
		if err := cfg.Save(path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("config written to", path)
		return
	}

	// With the panel up, logs would tear the screen; send them to a file.
	var logOut io.Writer = os.Stderr
	if *tui {
		f, err := os.OpenFile("midiwire-send.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logging.Options{Debug: cfg.Debug, Pretty: cfg.Pretty && !*tui, Output: logOut})

	if err := cfg.Validate(); err != nil {
		logger.Error("main: invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *tui); err != nil {
		logger.Error("main: stopped", "err", err)
		os.Exit(1)
	}
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.Path()
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, tui bool) error {
	tracker := activity.NewTracker(activity.WithLogger(logger))
	if cfg.LampTest {
		tracker.LampTest()
	}
	go tracker.Run(ctx, time.Duration(cfg.TickMS)*time.Millisecond, nil)

	tally := &transport.Tally{Logger: logger}
	adapter := openLink(cfg, logger, tally)
	defer adapter.Close()

	src, closeSrc, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	node := sender.New(adapter, cfg.Link.Peer, sender.WithTracker(tracker), sender.WithLogger(logger))
	logger.Info("main: node running", "input", cfg.Input, "transport", cfg.Link.Transport, "peer", cfg.Link.Peer)

	if !tui {
		err = node.Run(ctx, src)
	} else {
		ctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- node.Run(ctx, src) }()
		status := func() string {
			return fmt.Sprintf("%s  delivered %d  failed %d", node.Status(), tally.Delivered.Load(), tally.Failed.Load())
		}
		perr := panel.Run(ctx, tracker, status)
		cancel()
		err = <-done
		if perr != nil {
			err = perr
		}
	}

	st := node.Stats()
	logger.Info("main: node stopped",
		"events", st.Events, "real_time", st.RealTime, "stray", st.Stray, "sysex_skipped", st.SysExSkipped,
		"delivered", tally.Delivered.Load(), "failed", tally.Failed.Load())
	return err
}

// openLink brings up the transport. When that fails the node keeps running
// on a Discard adapter so decoding and the indicators still work.
func openLink(cfg *config.Config, logger *slog.Logger, tally *transport.Tally) transport.Adapter {
	opts := []transport.Option{transport.WithReport(tally.Report), transport.WithLogger(logger)}
	var (
		a   transport.Adapter
		err error
	)
	switch cfg.Link.Transport {
	case config.LinkSerial:
		a, err = transport.OpenSerialLink(cfg.Link.Device, cfg.Link.Baud, opts...)
	default:
		a, err = transport.DialUDP(opts...)
	}
	if err != nil {
		logger.Error("main: link unavailable, frames will be dropped", "transport", cfg.Link.Transport, "err", err)
		return transport.Discard{Logger: logger}
	}
	return a
}

func openSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (io.ByteReader, func(), error) {
	wd := &source.Watchdog{Every: watchdogEvery, Logger: logger}

	switch cfg.Input {
	case config.InputPort:
		p, err := source.OpenPort(source.PortOptions{
			Preferred: cfg.Port.Preferred,
			Excluded:  cfg.Port.Excluded,
			Idle:      wd.Kick,
			Logger:    logger,
		})
		if err != nil {
			return nil, nil, err
		}
		go p.Run(ctx)
		return p.Reader(ctx), func() { _ = p.Close() }, nil
	case config.InputReplay:
		r, err := source.OpenReplay(cfg.Replay)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		s, err := source.OpenSerial(ctx, cfg.Serial.Device, cfg.Serial.Baud, wd.Kick)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}
