package activity

import (
	"context"
	"log/slog"
	"time"
)

const (
	Channels     = 16
	Indicators   = 9 // eight channel lights plus one for channels 9..16
	HighChannel  = Indicators - 1
	MaxCount     = 40
	Increment    = 5 // ticks added per message on a channel
	TickInterval = 100 * time.Millisecond
)

// State is the on/off state of every indicator.
type State [Indicators]bool

// Tracker keeps one decay counter per MIDI channel. The decode path calls
// Touch, a periodic task calls Tick; these are the only writers.
type Tracker struct {
	counters [Channels]Counter
	max      int32
	inc      int32
	logger   *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger Run reports indicator changes to.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker returns a tracker with all indicators off.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{max: MaxCount, inc: Increment, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Touch records activity on a zero-based channel.
func (t *Tracker) Touch(channel uint8) {
	t.counters[channel%Channels].Bump(t.inc, t.max)
}

// Tick decays every non-zero counter by one and returns the resulting
// indicator state.
func (t *Tracker) Tick() State {
	for i := range t.counters {
		t.counters[i].Decay()
	}
	return t.Indicators()
}

// Count returns the counter of a zero-based channel.
func (t *Tracker) Count(channel uint8) int32 {
	return t.counters[channel%Channels].Load()
}

// Lit reports whether a channel's counter is non-zero.
func (t *Tracker) Lit(channel uint8) bool {
	return t.Count(channel) > 0
}

// Indicators maps the 16 channels onto the indicator row. Channel k and
// channel k+8 share light k; the last light is on while any of channels
// 8..15 is.
func (t *Tracker) Indicators() State {
	var s State
	for ch := uint8(0); ch < Channels; ch++ {
		if !t.Lit(ch) {
			continue
		}
		s[ch%(Indicators-1)] = true
		if ch >= Indicators-1 {
			s[HighChannel] = true
		}
	}
	return s
}

// LampTest lights every indicator with staggered timeouts so a freshly
// started node shows its lights going out one after the other.
func (t *Tracker) LampTest() {
	for i := range t.counters {
		t.counters[i].Set(int32(20 - i))
		t.counters[i].Bump(t.inc, t.max)
	}
}

// Run ticks every interval until ctx is done, calling show with the state
// after each tick.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, show func(State)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last State
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := t.Tick()
			if s != last {
				t.logger.Debug("activity: indicators changed", "lit", s.String())
				last = s
			}
			if show != nil {
				show(s)
			}
		}
	}
}

// String renders the state as a row of '#' (on) and '.' (off).
func (s State) String() string {
	b := make([]byte, Indicators)
	for i, on := range s {
		b[i] = '.'
		if on {
			b[i] = '#'
		}
	}
	return string(b)
}
