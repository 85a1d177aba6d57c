// Package sender runs the sensing node: bytes from a MIDI source are parsed,
// batched into frames and handed to a transport adapter.
package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/chase3718/midiwire/internal/activity"
	"github.com/chase3718/midiwire/internal/frame"
	"github.com/chase3718/midiwire/internal/midi"
	"github.com/chase3718/midiwire/internal/transport"
)

// tailLen is how many trailing bytes of each flushed frame are logged.
const tailLen = 6

// Status is a snapshot of the node counters.
type Status struct {
	Events   uint64
	Frames   uint64
	Stray    uint64
	Buffered int
}

func (s Status) String() string {
	return fmt.Sprintf("events %d  frames %d  stray %d  buffered %d", s.Events, s.Frames, s.Stray, s.Buffered)
}

// Node owns the parser and the frame buffer of one MIDI connection.
// Run and Handle must be called from a single goroutine; Status may be
// called from any.
type Node struct {
	parser  *midi.Parser
	buf     frame.Buffer
	adapter transport.Adapter
	dst     string
	tracker *activity.Tracker
	logger  *slog.Logger

	events   atomic.Uint64
	frames   atomic.Uint64
	stray    atomic.Uint64
	buffered atomic.Int64
}

// Option configures a Node.
type Option func(*Node)

// WithTracker feeds the channel of every accepted status byte to t.
func WithTracker(t *activity.Tracker) Option {
	return func(n *Node) { n.tracker = t }
}

// WithLogger sets the logger used by the node and its parser.
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// New returns a Node that sends its frames to dst through adapter.
func New(adapter transport.Adapter, dst string, opts ...Option) *Node {
	n := &Node{adapter: adapter, dst: dst, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	popts := []midi.Option{midi.WithLogger(n.logger)}
	if n.tracker != nil {
		popts = append(popts, midi.WithActivity(n.tracker.Touch))
	}
	n.parser = midi.NewParser(midi.Live, popts...)
	return n
}

// Run decodes src until it is exhausted or ctx is done. A message cut off
// by the end of src is dropped; whatever is buffered is flushed before Run
// returns.
func (n *Node) Run(ctx context.Context, src io.ByteReader) error {
	defer n.drain()
	for {
		if ctx.Err() != nil {
			return nil
		}
		ev, err := n.parser.Next(src)
		var se *midi.StrayByteError
		switch {
		case err == nil:
			n.Handle(ev)
		case errors.As(err, &se):
			n.stray.Add(1)
			n.logger.Warn("sender: stray data byte discarded", "byte", fmt.Sprintf("0x%02x", se.Byte))
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			n.logger.Warn("sender: source ended inside a message", "last_command", fmt.Sprintf("0x%02x", n.parser.LastCommand()))
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("sender: read: %w", err)
		}
	}
}

// Handle appends one decoded message to the buffer, flushing first if it
// would not fit and afterwards if the buffer crossed the threshold.
func (n *Node) Handle(ev midi.Event) {
	b := ev.Bytes()
	if !n.buf.Fits(len(b)) {
		n.flush()
	}
	n.buf.Append(b...)
	n.events.Add(1)
	if n.logger.Enabled(context.Background(), slog.LevelDebug) {
		n.logger.Debug("sender: message", "event", ev.String(), "msg", ev.Message().String())
	}
	if n.buf.Full() {
		n.flush()
	}
	n.buffered.Store(int64(n.buf.Len()))
}

func (n *Node) flush() {
	tail := n.buf.Tail(tailLen)
	f := n.buf.Flush()
	n.frames.Add(1)
	n.buffered.Store(0)
	n.logger.Info("sender: frame flushed", "len", f.Len, "tail", fmt.Sprintf("% x", tail))
	n.adapter.Send(n.dst, f)
}

func (n *Node) drain() {
	if n.buf.Len() > 0 {
		n.flush()
	}
}

// Stats returns the parser counters. Like Handle it must not race with Run.
func (n *Node) Stats() midi.Stats { return n.parser.Stats() }

// Status returns the node counters.
func (n *Node) Status() Status {
	return Status{
		Events:   n.events.Load(),
		Frames:   n.frames.Load(),
		Stray:    n.stray.Load(),
		Buffered: int(n.buffered.Load()),
	}
}
