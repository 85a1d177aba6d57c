// Package viewer turns received frames back into a readable MIDI trace.
package viewer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chase3718/midiwire/internal/frame"
	"github.com/chase3718/midiwire/internal/midi"
)

// Decoder re-parses frames on the display node. Its parser keeps running
// status and any unfinished message from one frame to the next, so frames
// must be handled in arrival order.
type Decoder struct {
	parser  *midi.Parser
	out     io.Writer
	logger  *slog.Logger
	packets int
}

// NewDecoder returns a Decoder writing trace lines to out.
func NewDecoder(out io.Writer, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		parser: midi.NewParser(midi.Framed, midi.WithLogger(logger)),
		out:    out,
		logger: logger,
	}
}

// Packets returns how many frames have been handled.
func (d *Decoder) Packets() int { return d.packets }

// Handle logs the frame arrival and writes one line per message in it.
func (d *Decoder) Handle(f frame.Frame) {
	d.packets++
	d.logger.Info(fmt.Sprintf("Packet(%d), number of bytes received: %d", d.packets, f.Len))
	for _, line := range d.Decode(f) {
		if _, err := fmt.Fprintln(d.out, line); err != nil {
			d.logger.Error("viewer: write failed", "err", err)
			return
		}
	}
}

// Decode returns the trace lines for the messages in f.
func (d *Decoder) Decode(f frame.Frame) []string {
	var lines []string
	d.each(f, func(ev midi.Event) {
		lines = append(lines, Render(ev))
	}, func(b byte) {
		lines = append(lines, StrayLine(b))
	})
	return lines
}

// DecodeEvents returns the messages in f. Stray data bytes are dropped.
func (d *Decoder) DecodeEvents(f frame.Frame) []midi.Event {
	var evs []midi.Event
	d.each(f, func(ev midi.Event) { evs = append(evs, ev) }, func(byte) {})
	return evs
}

func (d *Decoder) each(f frame.Frame, event func(midi.Event), stray func(byte)) {
	r := bytes.NewReader(f.Bytes())
	for {
		ev, err := d.parser.Next(r)
		var se *midi.StrayByteError
		switch {
		case err == nil:
			event(ev)
		case errors.As(err, &se):
			stray(se.Byte)
		case errors.Is(err, io.EOF):
			return
		case errors.Is(err, io.ErrUnexpectedEOF):
			d.logger.Debug("viewer: message continues in next frame", "status", fmt.Sprintf("0x%02x", d.parser.Pending()))
			return
		default:
			d.logger.Error("viewer: decode failed", "err", err)
			return
		}
	}
}
