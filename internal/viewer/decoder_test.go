package viewer

import (
	"bytes"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/chase3718/midiwire/internal/frame"
)

func mkFrame(p ...byte) frame.Frame {
	var f frame.Frame
	f.Len = uint8(len(p))
	copy(f.Payload[:], p)
	return f
}

func newTestDecoder(out io.Writer) *Decoder {
	return NewDecoder(out, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDecodeRunningStatus(t *testing.T) {
	d := newTestDecoder(io.Discard)
	got := d.Decode(mkFrame(0x91, 0x3C, 0x64, 0x40, 0x50))
	want := []string{"02 NO C4  100", "02 NO E4   80"}
	if !slices.Equal(got, want) {
		t.Fatalf("Decode = %q, want %q", got, want)
	}
}

func TestDecodeRunningStatusAcrossFrames(t *testing.T) {
	d := newTestDecoder(io.Discard)
	d.Decode(mkFrame(0xB0, 0x07, 0x64))
	got := d.Decode(mkFrame(0x0A, 0x40))
	want := []string{"01 CC 10 (0x0a) Value: 64"}
	if !slices.Equal(got, want) {
		t.Fatalf("Decode = %q, want %q", got, want)
	}
}

func TestDecodeStrayByte(t *testing.T) {
	d := newTestDecoder(io.Discard)
	got := d.Decode(mkFrame(0x3C, 0xC0, 0x05))
	want := []string{"0x3c == d60?", "01 PC PG:  5 (0x05)"}
	if !slices.Equal(got, want) {
		t.Fatalf("Decode = %q, want %q", got, want)
	}
}

func TestDecodeSystemClearsRunningStatus(t *testing.T) {
	d := newTestDecoder(io.Discard)
	got := d.Decode(mkFrame(0x90, 0x3C, 0x64, 0xF0, 0xF1, 0x3C))
	want := []string{"01 NO C4  100", "Connection test", "0x3c == d60?"}
	if !slices.Equal(got, want) {
		t.Fatalf("Decode = %q, want %q", got, want)
	}
}

func TestDecodePackedPitchBend(t *testing.T) {
	d := newTestDecoder(io.Discard)
	// A pitch bend and a song position each take one byte in a frame.
	got := d.Decode(mkFrame(0xE0, 0x40, 0xF2, 0x08, 0xC0, 0x01))
	want := []string{"01 PW Val:064", "sp=008", "01 PC PG:  1 (0x01)"}
	if !slices.Equal(got, want) {
		t.Fatalf("Decode = %q, want %q", got, want)
	}
}

func TestDecodeTruncatedMessage(t *testing.T) {
	d := newTestDecoder(io.Discard)
	got := d.Decode(mkFrame(0xC0, 0x05, 0x90, 0x3C))
	want := []string{"01 PC PG:  5 (0x05)"}
	if !slices.Equal(got, want) {
		t.Fatalf("Decode = %q, want %q", got, want)
	}
}

func TestDecodeMessageSplitAcrossFrames(t *testing.T) {
	tests := []struct {
		name   string
		frames []frame.Frame
		want   [][]string
	}{
		{
			"note on",
			[]frame.Frame{mkFrame(0xC1, 0x05, 0x90, 0x3C), mkFrame(0x64, 0xC0, 0x05)},
			[][]string{{"02 PC PG:  5 (0x05)"}, {"01 NO C4  100", "01 PC PG:  5 (0x05)"}},
		},
		{
			"status alone at the end",
			[]frame.Frame{mkFrame(0xB0), mkFrame(0x07, 0x64)},
			[][]string{nil, {"01 CC 7 (0x07) Value:100"}},
		},
		{
			"packed pitch bend",
			[]frame.Frame{mkFrame(0xE2), mkFrame(0x85, 0xFC)},
			[][]string{nil, {"03 PW Val:133", "Stop"}},
		},
		{
			"new status abandons it",
			[]frame.Frame{mkFrame(0x90, 0x3C), mkFrame(0xFA)},
			[][]string{nil, {"Start"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder(io.Discard)
			for i, f := range tt.frames {
				if got := d.Decode(f); !slices.Equal(got, tt.want[i]) {
					t.Fatalf("frame %d: Decode = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestDecodeEvents(t *testing.T) {
	d := newTestDecoder(io.Discard)
	evs := d.DecodeEvents(mkFrame(0x7F, 0x91, 0x3C, 0x64, 0xFA))
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if !bytes.Equal(evs[0].Bytes(), []byte{0x91, 0x3C, 0x64}) || evs[1].Status != 0xFA {
		t.Fatalf("events = %v", evs)
	}
}

func TestHandle(t *testing.T) {
	var out, logs bytes.Buffer
	d := NewDecoder(&out, slog.New(slog.NewTextHandler(&logs, nil)))
	d.Handle(mkFrame(0x91, 0x3C, 0x64))
	d.Handle(mkFrame(0xFC))

	if got, want := out.String(), "02 NO C4  100\nStop\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if d.Packets() != 2 {
		t.Fatalf("Packets = %d", d.Packets())
	}
	for _, want := range []string{"Packet(1), number of bytes received: 3", "Packet(2), number of bytes received: 1"} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("log missing %q:\n%s", want, logs.String())
		}
	}
}
