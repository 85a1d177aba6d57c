package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const (
	rescanInterval = 1000 * time.Millisecond
	portBufferSize = 4096
)

// -------------------- Port --------------------

// Port turns messages from a MIDI input port into a byte stream, so a USB
// interface can stand in for the serial line. It keeps a connection to the
// preferred device and handles hot-plug: a device that appears is
// connected on the next rescan, a device that disappears is dropped.
type Port struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	preferred []string
	excluded  []string

	bytes  chan byte
	idle   func()
	logger *slog.Logger
}

// PortOptions selects which input the watcher connects to.
type PortOptions struct {
	Preferred []string // name patterns picked first
	Excluded  []string // virtual/system ports never connected
	Idle      func()
	Logger    *slog.Logger
}

// OpenPort creates a watcher and initialises the rtmidi driver. Call Run to
// start watching and Close when done.
func OpenPort(opts PortOptions) (*Port, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Port{
		drv:       drv,
		preferred: opts.Preferred,
		excluded:  opts.Excluded,
		bytes:     make(chan byte, portBufferSize),
		idle:      opts.Idle,
		logger:    logger,
	}, nil
}

// Run rescans the inputs until ctx is done.
func (p *Port) Run(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval / 4)
	defer ticker.Stop()

	p.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// ReadByteContext returns the next byte received from the connected input.
// It blocks until one arrives or ctx is done, calling the idle hook while
// nothing comes in.
func (p *Port) ReadByteContext(ctx context.Context) (byte, error) {
	timer := time.NewTimer(serialReadTimeout)
	defer timer.Stop()
	for {
		select {
		case b := <-p.bytes:
			return b, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
			if p.idle != nil {
				p.idle()
			}
			timer.Reset(serialReadTimeout)
		}
	}
}

// Reader binds the port to ctx as an io.ByteReader.
func (p *Port) Reader(ctx context.Context) *PortReader {
	return &PortReader{port: p, ctx: ctx}
}

// PortReader is an io.ByteReader over a Port.
type PortReader struct {
	port *Port
	ctx  context.Context
}

func (r *PortReader) ReadByte() (byte, error) { return r.port.ReadByteContext(r.ctx) }

// Close shuts down the active connection and the rtmidi driver.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeConn()
	return p.drv.Close()
}

// Tick scans for devices, connects to a preferred one and notices when the
// connected one disappears. Scans closer together than the rescan interval
// are skipped.
func (p *Port) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !p.lastRescanAt.IsZero() && now.Sub(p.lastRescanAt) < rescanInterval {
		return
	}
	p.lastRescanAt = now

	inputs := p.listInputs()

	if p.connected {
		for _, n := range inputs {
			if n == p.selectedName {
				return
			}
		}
		p.logger.Warn("midi: device disappeared", "device", p.selectedName)
		p.closeConn()
		p.lastRescanAt = time.Time{}
		return
	}

	if len(inputs) == 0 {
		return
	}
	cand, ok := pickPreferred(inputs, p.preferred)
	if !ok {
		return
	}
	if err := p.openByName(cand); err != nil {
		p.logger.Error("midi: connect failed", "device", cand, "err", err)
	}
}

// -------------------- internal --------------------

func (p *Port) listInputs() []string {
	ins, err := p.drv.Ins()
	if err != nil {
		p.logger.Error("midi: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		if matchesAny(name, p.excluded) {
			p.logger.Debug("midi: input excluded", "device", name)
			continue
		}
		names = append(names, name)
	}
	p.logger.Debug("midi: inputs found", "count", len(names), "devices", strings.Join(names, ", "))
	return names
}

func (p *Port) closeConn() {
	if p.stopFn != nil {
		p.stopFn()
		p.stopFn = nil
	}
	if p.inPort != nil {
		_ = p.inPort.Close()
		p.inPort = nil
	}
	p.connected = false
	p.selectedName = ""
}

func (p *Port) openByName(name string) error {
	ins, err := p.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		p.push(msg)
	}, midi.UseSysEx(), midi.HandleError(func(listenErr error) {
		p.logger.Warn("midi: listener error", "device", name, "err", listenErr)
		// closeConn must not run on the listener goroutine.
		go func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.connected && p.selectedName == name {
				p.closeConn()
				p.lastRescanAt = time.Time{}
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	p.inPort = found
	p.stopFn = stop
	p.connected = true
	p.selectedName = name
	p.logger.Info("midi: connected", "device", name)
	return nil
}

// push queues the bytes of one message. A full queue drops the rest of the
// message; the decoder resynchronises on the next status byte.
func (p *Port) push(msg midi.Message) {
	for _, b := range []byte(msg) {
		select {
		case p.bytes <- b:
		default:
			p.logger.Warn("midi: input buffer full; bytes dropped", "msg", msg.String())
			return
		}
	}
}

func pickPreferred(inputs, preferred []string) (string, bool) {
	for _, pat := range preferred {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func matchesAny(name string, patterns []string) bool {
	for _, pat := range patterns {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
