package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chase3718/midiwire/internal/frame"
	"github.com/chase3718/midiwire/internal/serialport"
)

// SerialLink sends frames over a serial radio modem. The destination is
// ignored; whatever listens on the other end of the link receives them.
type SerialLink struct {
	*async
	port *serialport.Port
}

// OpenSerialLink opens device at baud for sending enveloped frames.
func OpenSerialLink(device string, baud int, opts ...Option) (*SerialLink, error) {
	o := buildOptions(opts)
	p, err := serialport.Open(device, baud, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("transport: serial link: %w", err)
	}
	s := &SerialLink{port: p}
	s.async = newAsync(o, s.write)
	o.logger.Info("transport: serial link ready", "device", p.Name(), "baud", baud)
	return s, nil
}

func (s *SerialLink) write(_ string, rec []byte) (int, error) {
	return s.port.Write(Wrap(CmdFrame, rec))
}

// Close flushes queued frames and closes the port.
func (s *SerialLink) Close() error {
	s.shutdown()
	return s.port.Close()
}

// SerialListener receives enveloped frames from a serial radio modem.
type SerialListener struct {
	port   *serialport.Port
	logger *slog.Logger
}

// ListenSerial opens device at baud for receiving.
func ListenSerial(device string, baud int, logger *slog.Logger) (*SerialListener, error) {
	p, err := serialport.Open(device, baud, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("transport: serial listener: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialListener{port: p, logger: logger}, nil
}

// Serve reads envelopes until ctx is done. Corrupt envelopes and unknown
// commands are logged and skipped.
func (l *SerialListener) Serve(ctx context.Context, handle func(frame.Frame)) error {
	l.logger.Info("transport: listening", "device", l.port.Name())
	u := NewUnwrapper(&serialport.Reader{Port: l.port, Ctx: ctx})
	return serve(ctx, u, l.logger, handle)
}

func serve(ctx context.Context, u *Unwrapper, logger *slog.Logger, handle func(frame.Frame)) error {
	for {
		cmd, rec, err := u.Next()
		switch {
		case err == nil:
		case errors.Is(err, ErrChecksum):
			logger.Warn("transport: dropped envelope", "err", err)
			continue
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("transport: receive: %w", err)
		}
		if cmd != CmdFrame {
			logger.Warn("transport: unknown command", "cmd", fmt.Sprintf("0x%02x", cmd))
			continue
		}
		f, err := frame.Decode(rec)
		if err != nil {
			logger.Warn("transport: bad record", "err", err)
			continue
		}
		handle(f)
	}
}

// Close closes the port.
func (l *SerialListener) Close() error {
	return l.port.Close()
}
