// Command midiwire-view runs the display node: it receives frames from
// midiwire-send and prints one line per MIDI message.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chase3718/midiwire/internal/config"
	"github.com/chase3718/midiwire/internal/logging"
	"github.com/chase3718/midiwire/internal/transport"
	"github.com/chase3718/midiwire/internal/viewer"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	pretty := flag.Bool("pretty", false, "colourised log output")
	link := flag.String("transport", "", "link from the sensing node: udp or serial")
	listen := flag.String("listen", "", "address to receive frames on (udp)")
	linkDev := flag.String("link-serial", "", "radio modem device (serial link)")
	linkBaud := flag.Int("link-baud", 0, "radio modem baud rate")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = c
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug = *debug
		case "pretty":
			cfg.Pretty = *pretty
		case "transport":
			cfg.Link.Transport = *link
		case "listen":
			cfg.Link.Listen = *listen
		case "link-serial":
			cfg.Link.Device = *linkDev
		case "link-baud":
			cfg.Link.Baud = *linkBaud
		}
	})

	logger := logging.New(logging.Options{Debug: cfg.Debug, Pretty: cfg.Pretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("main: stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		ln  transport.Listener
		err error
	)
	switch cfg.Link.Transport {
	case config.LinkSerial:
		ln, err = transport.ListenSerial(cfg.Link.Device, cfg.Link.Baud, logger)
	case config.LinkUDP:
		ln, err = transport.ListenUDP(cfg.Link.Listen, logger)
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Link.Transport)
	}
	if err != nil {
		return err
	}
	defer ln.Close()

	dec := viewer.NewDecoder(os.Stdout, logger)
	logger.Info("main: ready to receive data", "transport", cfg.Link.Transport)
	if err := ln.Serve(ctx, dec.Handle); err != nil {
		return err
	}
	logger.Info("main: viewer stopped", "packets", dec.Packets())
	return nil
}
