package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/chase3718/midiwire/internal/frame"
)

func TestWrapLayout(t *testing.T) {
	got := Wrap(CmdFrame, []byte{0x03, 0x90, 0x3C})
	want := []byte{SOF0, SOF1, 0x04, CmdFrame, 0x03, 0x90, 0x3C, 0x04 ^ CmdFrame ^ 0x03 ^ 0x90 ^ 0x3C}
	if !bytes.Equal(got, want) {
		t.Fatalf("Wrap = % x, want % x", got, want)
	}
}

func TestUnwrapRoundTrip(t *testing.T) {
	var f frame.Frame
	f.Len = 3
	copy(f.Payload[:], []byte{0x90, 0x3C, 0x64})

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x13, SOF0}) // noise before the first marker
	stream.Write(Wrap(CmdFrame, f.Encode()))

	u := NewUnwrapper(&stream)
	cmd, rec, err := u.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if cmd != CmdFrame {
		t.Fatalf("cmd = 0x%02x", cmd)
	}
	got, err := frame.Decode(rec)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Bytes(), f.Bytes()) {
		t.Fatalf("payload = % x, want % x", got.Bytes(), f.Bytes())
	}
	if _, _, err := u.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want EOF", err)
	}
}

func TestUnwrapChecksumThenResync(t *testing.T) {
	bad := Wrap(CmdFrame, []byte{0x01, 0xF8})
	bad[len(bad)-1] ^= 0xFF
	good := Wrap(CmdFrame, []byte{0x01, 0xFA})

	u := NewUnwrapper(bytes.NewReader(append(bad, good...)))
	if _, _, err := u.Next(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
	_, rec, err := u.Next()
	if err != nil {
		t.Fatalf("Next after bad envelope: %v", err)
	}
	if !bytes.Equal(rec, []byte{0x01, 0xFA}) {
		t.Fatalf("rec = % x", rec)
	}
}

func TestUnwrapTruncated(t *testing.T) {
	w := Wrap(CmdFrame, []byte{0x02, 0x90, 0x3C})
	u := NewUnwrapper(bytes.NewReader(w[:len(w)-2]))
	if _, _, err := u.Next(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestServeSkipsCorruptEnvelopes(t *testing.T) {
	mk := func(p ...byte) []byte {
		var f frame.Frame
		f.Len = uint8(len(p))
		copy(f.Payload[:], p)
		return Wrap(CmdFrame, f.Encode())
	}
	corrupt := mk(0x90, 0x3C, 0x64)
	corrupt[5] ^= 0x01

	var stream []byte
	stream = append(stream, mk(0xF8)...)
	stream = append(stream, corrupt...)
	stream = append(stream, Wrap(0x7E, []byte{0x00})...)
	stream = append(stream, mk(0xFA)...)

	var got [][]byte
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := serve(context.Background(), NewUnwrapper(bytes.NewReader(stream)), logger, func(f frame.Frame) {
		got = append(got, append([]byte(nil), f.Bytes()...))
	})
	if err == nil || !errors.Is(err, io.EOF) {
		t.Fatalf("serve err = %v, want wrapped EOF", err)
	}
	if len(got) != 2 || got[0][0] != 0xF8 || got[1][0] != 0xFA {
		t.Fatalf("frames = %x", got)
	}
}
