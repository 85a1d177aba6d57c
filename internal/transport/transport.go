// Package transport moves frames from the sensing node to the display node.
// Sending is fire-and-forget: Send never blocks, every attempt ends in
// exactly one Report, and nothing is retried.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chase3718/midiwire/internal/frame"
)

var (
	ErrQueueFull = errors.New("transport: send queue full")
	ErrClosed    = errors.New("transport: adapter closed")
	ErrChecksum  = errors.New("transport: checksum mismatch")
)

const defaultQueueDepth = 8

// Report is the outcome of one send attempt.
type Report struct {
	Seq   uint64 // attempt number, starting at 1
	Dst   string
	Bytes int
	Err   error
}

// OK reports whether the attempt was delivered to the link.
func (r Report) OK() bool { return r.Err == nil }

// Adapter sends frames without blocking the caller.
type Adapter interface {
	Send(dst string, f frame.Frame)
	Close() error
}

// Listener receives frames on the display node.
type Listener interface {
	// Serve calls handle for every frame until ctx is done.
	Serve(ctx context.Context, handle func(frame.Frame)) error
	Close() error
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	report func(Report)
	depth  int
	logger *slog.Logger
}

// WithReport registers the completion callback. It runs on the adapter's
// worker goroutine, or on the caller's when the attempt fails immediately.
func WithReport(fn func(Report)) Option {
	return func(o *options) { o.report = fn }
}

// WithQueueDepth sets how many frames may wait for the link.
func WithQueueDepth(n int) Option {
	return func(o *options) { o.depth = n }
}

// WithLogger sets the logger used by the adapter.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{depth: defaultQueueDepth, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.report == nil {
		o.report = func(Report) {}
	}
	return o
}

// -------------------- async worker --------------------

type job struct {
	seq uint64
	dst string
	rec []byte
}

// async queues encoded frames for a single writer goroutine.
type async struct {
	mu     sync.RWMutex
	closed bool
	queue  chan job
	seq    atomic.Uint64
	wg     sync.WaitGroup

	write  func(dst string, rec []byte) (int, error)
	report func(Report)
}

func newAsync(o options, write func(dst string, rec []byte) (int, error)) *async {
	a := &async{
		queue:  make(chan job, o.depth),
		write:  write,
		report: o.report,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *async) Send(dst string, f frame.Frame) {
	seq := a.seq.Add(1)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.report(Report{Seq: seq, Dst: dst, Err: ErrClosed})
		return
	}
	select {
	case a.queue <- job{seq: seq, dst: dst, rec: f.Encode()}:
	default:
		a.report(Report{Seq: seq, Dst: dst, Err: ErrQueueFull})
	}
}

func (a *async) run() {
	defer a.wg.Done()
	for j := range a.queue {
		n, err := a.write(j.dst, j.rec)
		a.report(Report{Seq: j.seq, Dst: j.dst, Bytes: n, Err: err})
	}
}

// shutdown stops accepting frames and waits for queued ones to be written.
func (a *async) shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	a.wg.Wait()
}

// -------------------- Discard --------------------

// Discard is used when the link could not be brought up: frames are
// dropped so the rest of the node keeps running without a peer.
type Discard struct {
	Logger *slog.Logger
}

func (d Discard) Send(dst string, f frame.Frame) {
	if d.Logger != nil {
		d.Logger.Debug("transport: no link, frame dropped", "dst", dst, "len", f.Len)
	}
}

func (Discard) Close() error { return nil }

// -------------------- Tally --------------------

// Tally logs send reports and counts their outcome.
type Tally struct {
	Delivered atomic.Uint64
	Failed    atomic.Uint64
	Logger    *slog.Logger
}

// Report is meant to be passed to WithReport.
func (t *Tally) Report(r Report) {
	l := t.Logger
	if l == nil {
		l = slog.Default()
	}
	if r.OK() {
		t.Delivered.Add(1)
		l.Info("transport: sent packet", "packet", r.Seq, "dst", r.Dst, "bytes", r.Bytes, "status", "Delivery success")
		return
	}
	t.Failed.Add(1)
	l.Warn("transport: sent packet", "packet", r.Seq, "dst", r.Dst, "status", "Delivery fail", "err", r.Err)
}
