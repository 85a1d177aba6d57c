package serialport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// MIDIBaud is the fixed bit rate of a MIDI DIN link.
const MIDIBaud = 31250

// Port wraps a go.bug.st/serial port with context-aware reads.
type Port struct {
	port serial.Port
	name string
}

// Open opens the named serial device at the given baud rate. Reads return
// after at most readTimeout so callers can notice cancellation and keep a
// watchdog fed while the line is quiet.
func Open(name string, baud int, readTimeout time.Duration) (*Port, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serial: set read timeout on %s: %w", name, err)
	}
	slog.Info("serial: port opened", "device", name, "baud", baud)
	return &Port{port: p, name: name}, nil
}

// List returns the names of the serial devices present on the system.
func List() ([]string, error) {
	return serial.GetPortsList()
}

// Name returns the device the port was opened on.
func (p *Port) Name() string { return p.name }

// ReadContext reads into b and returns once at least one byte arrived.
// Every read timeout with no data calls idle (if non-nil) and checks ctx.
func (p *Port) ReadContext(ctx context.Context, b []byte, idle func()) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := p.port.Read(b)
		if err != nil {
			return n, fmt.Errorf("serial: read %s: %w", p.name, err)
		}
		if n > 0 {
			return n, nil
		}
		if idle != nil {
			idle()
		}
	}
}

// Write writes b to the port.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("serial: write %s: %w", p.name, err)
	}
	return n, nil
}

// Close closes the underlying serial port.
func (p *Port) Close() error {
	slog.Info("serial: closing port", "device", p.name)
	return p.port.Close()
}

// Reader adapts a Port to io.Reader for a fixed context.
type Reader struct {
	Port *Port
	Ctx  context.Context
	Idle func()
}

func (r *Reader) Read(b []byte) (int, error) {
	return r.Port.ReadContext(r.Ctx, b, r.Idle)
}
