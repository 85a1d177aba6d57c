package source

import (
	"bufio"
	"fmt"
	"os"
)

// Replay feeds a file of raw MIDI bytes to the decoder, as if it had been
// captured from the serial line.
type Replay struct {
	*bufio.Reader
	f *os.File
}

// OpenReplay opens a capture file.
func OpenReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return &Replay{Reader: bufio.NewReader(f), f: f}, nil
}

// Close closes the file.
func (r *Replay) Close() error { return r.f.Close() }
