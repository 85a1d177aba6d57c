package midi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Mode selects where a Parser's bytes come from.
type Mode uint8

const (
	// Live reads a raw serial stream: real-time bytes are filtered out,
	// 14-bit values arrive as two bytes and SysEx payloads are skipped.
	Live Mode = iota
	// Framed reads bytes a Live parser already buffered.
	Framed
)

const noLookahead = -1

// ErrStrayData is matched by errors reporting a data byte that arrived
// while no running status was in effect.
var ErrStrayData = errors.New("midi: data byte without running status")

// StrayByteError carries the discarded data byte.
type StrayByteError struct {
	Byte byte
}

func (e *StrayByteError) Error() string {
	return fmt.Sprintf("midi: stray data byte 0x%02x", e.Byte)
}

func (e *StrayByteError) Is(target error) bool { return target == ErrStrayData }

// Stats counts what a Parser has seen since it was created or reset.
type Stats struct {
	Events       uint64
	RealTime     uint64
	Stray        uint64
	SysExSkipped uint64
}

// Parser reconstructs MIDI messages from a byte stream using running
// status. Its state (the one-byte lookahead and the last channel command)
// belongs to the connection: it survives frame flushes and frame
// boundaries and is only cleared by Reset.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	mode        Mode
	lookahead   int
	lastCommand byte
	skipping    bool

	// A message whose data bytes ran past the end of the input. A Framed
	// parser finishes it from the next frame.
	pending byte
	got     int
	raw     [2]byte

	onActivity func(channel uint8)
	onRealTime func(b byte)
	logger     *slog.Logger
	stats      Stats
}

// Option configures a Parser.
type Option func(*Parser)

// WithActivity registers fn to be called with the channel nibble of every
// status byte the parser accepts, before its data bytes are read.
func WithActivity(fn func(channel uint8)) Option {
	return func(p *Parser) { p.onActivity = fn }
}

// WithRealTime registers fn to be called for every real-time byte a Live
// parser discards.
func WithRealTime(fn func(b byte)) Option {
	return func(p *Parser) { p.onRealTime = fn }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// NewParser returns a Parser in the given mode with no running status.
func NewParser(mode Mode, opts ...Option) *Parser {
	p := &Parser{mode: mode, lookahead: noLookahead, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.onRealTime == nil {
		p.onRealTime = func(b byte) {
			p.logger.Debug("midi: real time message", "byte", b)
		}
	}
	return p
}

// Reset forgets running status and any pending lookahead. Call it when a
// new connection is established, never on a frame flush.
func (p *Parser) Reset() {
	p.lookahead = noLookahead
	p.lastCommand = 0
	p.skipping = false
	p.pending, p.got, p.raw = 0, 0, [2]byte{}
	p.stats = Stats{}
}

// LastCommand returns the status byte running status would reuse, or 0.
func (p *Parser) LastCommand() byte { return p.lastCommand }

// Pending returns the status of a message still waiting for data bytes, or 0.
func (p *Parser) Pending() byte { return p.pending }

// Stats returns a copy of the parser counters.
func (p *Parser) Stats() Stats { return p.stats }

// Next reads one complete message from r.
//
// It returns io.EOF when r is exhausted at a message boundary and
// io.ErrUnexpectedEOF when it ends inside a message. A Framed parser keeps
// the unfinished message and completes it from the next reader, so a
// message split across two frames decodes as one; a status byte where the
// missing data should be abandons it. A Live parser drops it.
//
// A data byte with no running status is discarded and reported as a
// *StrayByteError; the parser stays usable and the next call resynchronises
// on the following byte.
func (p *Parser) Next(r io.ByteReader) (Event, error) {
	if p.pending != 0 {
		if p.mode == Framed {
			return p.resume(r)
		}
		p.pending = 0
	}

	if p.skipping {
		if err := p.skipSysEx(r); err != nil {
			return Event{}, err
		}
	}

	c, err := p.next(r)
	if err != nil {
		return Event{}, err
	}

	if c&0x80 == 0 && p.lastCommand&0x80 != 0 {
		p.lookahead = int(c)
		c = p.lastCommand
	}
	if c&0x80 == 0 {
		p.stats.Stray++
		return Event{}, &StrayByteError{Byte: c}
	}

	if p.onActivity != nil {
		p.onActivity(c & 0x0F)
	}

	if KindOf(c) == System {
		// System messages never take part in running status.
		p.lastCommand = 0
	} else {
		p.lastCommand = c
	}

	p.pending, p.got, p.raw = c, 0, [2]byte{}
	return p.finish(r)
}

// resume continues the pending message with the bytes of r.
func (p *Parser) resume(r io.ByteReader) (Event, error) {
	c, err := p.next(r)
	if err != nil {
		return Event{}, err
	}
	p.lookahead = int(c)
	// A packed 14-bit byte may have its high bit set; any other data byte
	// may not.
	if ki := info(p.pending); c&0x80 != 0 && ki.read == ki.keep {
		p.logger.Debug("midi: unfinished message abandoned", "status", p.pending, "next", c)
		p.pending = 0
		return p.Next(r)
	}
	return p.finish(r)
}

// finish reads the data bytes the pending message still lacks.
func (p *Parser) finish(r io.ByteReader) (Event, error) {
	c := p.pending
	ki := info(c)
	n := ki.read
	if p.mode == Framed {
		n = ki.keep
	}
	for p.got < n {
		b, err := p.next(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Event{}, err
		}
		p.raw[p.got] = b
		p.got++
	}
	raw := p.raw
	p.pending = 0

	ev := Event{Status: c}
	if n > ki.keep {
		// Two 7-bit bytes packed into one: anything above bit 7 is lost.
		ev.Wide = uint16(raw[0]) | uint16(raw[1])<<7
		ev.Data[0] = byte(ev.Wide)
	} else {
		ev.Data = raw
	}
	ev.N = ki.keep
	if KindOf(c) == ControlChange {
		ev.Data[0] &= 0x7F
	}

	if c == 0xF0|SysEx && p.mode == Live {
		p.skipping = true
	}
	p.stats.Events++
	return ev, nil
}

// next returns the lookahead byte if there is one, otherwise the next byte
// of r. A Live parser swallows real-time bytes here.
func (p *Parser) next(r io.ByteReader) (byte, error) {
	if p.lookahead != noLookahead {
		c := byte(p.lookahead)
		p.lookahead = noLookahead
		return c, nil
	}
	return p.read(r)
}

func (p *Parser) read(r io.ByteReader) (byte, error) {
	for {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if p.mode == Live && IsRealTime(c) {
			p.stats.RealTime++
			p.onRealTime(c)
			continue
		}
		return c, nil
	}
}

// skipSysEx discards a System Exclusive payload. The first byte with its
// high bit set ends the payload and becomes the lookahead, so the next
// message starts there. Real-time bytes inside the payload are reported
// and do not end it.
func (p *Parser) skipSysEx(r io.ByteReader) error {
	for {
		c, err := p.read(r)
		if err != nil {
			return err
		}
		if c&0x80 != 0 {
			p.skipping = false
			p.lookahead = int(c)
			return nil
		}
		p.stats.SysExSkipped++
	}
}
