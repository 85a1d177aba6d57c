package frame

import "fmt"

// Buffer accumulates whole MIDI messages until they are worth a
// transmission. It is allocated once and reused: Flush only resets the
// fill length. The zero value is an empty buffer.
//
// Callers append complete messages only and check Fits before and Full
// after each one; with messages of at most 3 bytes that keeps the length
// within Capacity.
type Buffer struct {
	data [Capacity]byte
	n    int
}

// Append adds the bytes of one message. Appending past Capacity is a
// programming error and panics.
func (b *Buffer) Append(p ...byte) {
	if b.n+len(p) > Capacity {
		panic(fmt.Sprintf("frame: append of %d bytes at length %d overflows capacity %d", len(p), b.n, Capacity))
	}
	b.n += copy(b.data[b.n:], p)
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return b.n }

// Full reports whether the buffer crossed the flush threshold.
func (b *Buffer) Full() bool { return b.n > Threshold }

// Fits reports whether a message of k bytes can still be appended.
func (b *Buffer) Fits(k int) bool { return b.n+k <= Capacity }

// Flush copies the buffered bytes into a Frame and empties the buffer.
func (b *Buffer) Flush() Frame {
	f := Frame{Len: uint8(b.n)}
	copy(f.Payload[:], b.data[:b.n])
	b.n = 0
	return f
}

// Tail returns a copy of the last k buffered bytes (fewer if the buffer
// holds less).
func (b *Buffer) Tail(k int) []byte {
	if k > b.n {
		k = b.n
	}
	out := make([]byte, k)
	copy(out, b.data[b.n-k:b.n])
	return out
}
