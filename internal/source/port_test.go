package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func TestPickPreferred(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		preferred []string
		want      string
		ok        bool
	}{
		{"preferred wins", []string{"USB MIDI 1", "Launchkey Mini"}, []string{"launchkey"}, "Launchkey Mini", true},
		{"single input", []string{"USB MIDI 1"}, []string{"launchkey"}, "USB MIDI 1", true},
		{"ambiguous", []string{"A", "B"}, nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickPreferred(tt.inputs, tt.preferred)
			if got != tt.want || ok != tt.ok {
				t.Errorf("pickPreferred = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	if !matchesAny("Midi Through Port-0", []string{"midi through"}) {
		t.Error("through port not excluded")
	}
	if matchesAny("USB MIDI 1", []string{"midi through", "dummy"}) {
		t.Error("real port excluded")
	}
}

func newTestPort(size int, idle func()) *Port {
	return &Port{
		bytes:  make(chan byte, size),
		idle:   idle,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPortDeliversMessageBytes(t *testing.T) {
	p := newTestPort(16, nil)
	p.push(midi.NoteOn(1, 60, 100))
	p.push(midi.ProgramChange(2, 5))

	r := p.Reader(context.Background())
	want := []byte{0x91, 60, 100, 0xC2, 5}
	for i, w := range want {
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
		if b != w {
			t.Errorf("byte %d = %#x, want %#x", i, b, w)
		}
	}
}

func TestPortDropsWhenFull(t *testing.T) {
	p := newTestPort(2, nil)
	p.push(midi.NoteOn(0, 60, 100))
	if len(p.bytes) != 2 {
		t.Errorf("queued %d bytes, want 2", len(p.bytes))
	}
}

func TestPortReadHonoursContext(t *testing.T) {
	idles := 0
	p := newTestPort(1, func() { idles++ })
	ctx, cancel := context.WithTimeout(context.Background(), 3*serialReadTimeout)
	defer cancel()

	_, err := p.ReadByteContext(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if idles == 0 {
		t.Error("idle hook never called")
	}
}

func TestWatchdog(t *testing.T) {
	w := &Watchdog{Every: 3, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for i := 0; i < 7; i++ {
		w.Kick()
	}
	if w.Kicks() != 7 {
		t.Errorf("kicks = %d, want 7", w.Kicks())
	}
}

func TestReplay(t *testing.T) {
	path := t.TempDir() + "/capture.mid"
	if err := os.WriteFile(path, []byte{0x90, 0x3C, 0x64}, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := OpenReplay(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var got []byte
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, b)
	}
	if len(got) != 3 || got[0] != 0x90 {
		t.Errorf("replayed % x", got)
	}

	if _, err := OpenReplay(path + ".missing"); err == nil {
		t.Error("missing file opened")
	}
}
