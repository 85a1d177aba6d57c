package source

import (
	"bufio"
	"context"
	"log/slog"
	"time"

	"github.com/chase3718/midiwire/internal/serialport"
)

const serialReadTimeout = 100 * time.Millisecond

// Serial reads raw MIDI bytes from a serial port. ReadByte blocks until a
// byte arrives or ctx is done.
type Serial struct {
	*bufio.Reader
	port *serialport.Port
}

// OpenSerial opens a MIDI serial input. idle is called on every read
// timeout while the line is quiet; pass a Watchdog's Kick to keep a
// liveness monitor informed.
func OpenSerial(ctx context.Context, device string, baud int, idle func()) (*Serial, error) {
	p, err := serialport.Open(device, baud, serialReadTimeout)
	if err != nil {
		return nil, err
	}
	r := &serialport.Reader{Port: p, Ctx: ctx, Idle: idle}
	return &Serial{Reader: bufio.NewReaderSize(r, 64), port: p}, nil
}

// Close closes the port.
func (s *Serial) Close() error { return s.port.Close() }

// Watchdog is kicked by a blocked source while it waits for input and
// reports long silences.
type Watchdog struct {
	// Every is the number of kicks between two reports.
	Every  int
	Logger *slog.Logger

	kicks int
}

// Kick records one idle period.
func (w *Watchdog) Kick() {
	w.kicks++
	if w.Every > 0 && w.kicks%w.Every == 0 {
		l := w.Logger
		if l == nil {
			l = slog.Default()
		}
		l.Debug("source: waiting for input", "idle_periods", w.kicks)
	}
}

// Kicks returns the number of idle periods seen so far.
func (w *Watchdog) Kicks() int { return w.kicks }
