package frame

import (
	"errors"
	"fmt"
)

const (
	Capacity   = 60           // payload bytes per frame
	Threshold  = Capacity - 2 // a frame is flushed once its length exceeds this
	RecordSize = Capacity + 1 // length byte + payload
)

var (
	ErrShortRecord = errors.New("frame: short record")
	ErrBadLength   = errors.New("frame: length exceeds capacity")
)

// Frame is an immutable snapshot of buffered MIDI bytes, sent to the
// display node as one transmission. Only the first Len payload bytes are
// significant.
type Frame struct {
	Len     uint8
	Payload [Capacity]byte
}

// Bytes returns the significant part of the payload.
func (f *Frame) Bytes() []byte {
	return f.Payload[:f.Len]
}

// Encode builds the on-wire record:
//
//	[LEN][payload0..payload59]
//
// The record always has RecordSize bytes; there is no header, checksum or
// sequence number, integrity and ordering are left to the link.
func (f *Frame) Encode() []byte {
	out := make([]byte, RecordSize)
	out[0] = f.Len
	copy(out[1:], f.Payload[:])
	return out
}

// Decode parses a record produced by Encode. Records cut short after the
// significant bytes are accepted.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if len(b) < 1 {
		return f, ErrShortRecord
	}
	n := int(b[0])
	if n > Capacity {
		return f, fmt.Errorf("%w: %d", ErrBadLength, n)
	}
	if len(b) < 1+n {
		return f, fmt.Errorf("%w: have %d bytes, length says %d", ErrShortRecord, len(b)-1, n)
	}
	f.Len = uint8(n)
	copy(f.Payload[:], b[1:1+n])
	return f, nil
}
