package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	SOF0         = 0xAA
	SOF1         = 0x55
	CmdFrame     = 0x20
	envelopeSize = 5 // SOF0, SOF1, LEN, CMD, CKS
)

// Wrap encloses a record in the radio link envelope:
//
//	[SOF0][SOF1][LEN][CMD][record...][CKS]
//
// LEN counts the CMD byte plus the record. CKS is LEN ^ CMD ^ every record byte.
func Wrap(cmd byte, rec []byte) []byte {
	length := byte(len(rec) + 1)
	cks := length ^ cmd
	for _, b := range rec {
		cks ^= b
	}

	out := make([]byte, 0, len(rec)+envelopeSize)
	out = append(out, SOF0, SOF1, length, cmd)
	out = append(out, rec...)
	return append(out, cks)
}

// Unwrapper pulls enveloped records out of a byte stream, resynchronising on
// the start-of-frame marker after noise or a bad checksum.
type Unwrapper struct {
	r *bufio.Reader
}

func NewUnwrapper(r io.Reader) *Unwrapper {
	return &Unwrapper{r: bufio.NewReader(r)}
}

// Next returns the command and record of the next envelope. A checksum
// failure returns ErrChecksum; the caller may keep calling Next.
func (u *Unwrapper) Next() (byte, []byte, error) {
	if err := u.sync(); err != nil {
		return 0, nil, err
	}
	length, err := u.r.ReadByte()
	if err != nil {
		return 0, nil, unexpected(err)
	}
	if length == 0 {
		return 0, nil, fmt.Errorf("%w: empty envelope", ErrChecksum)
	}
	body := make([]byte, int(length)+1) // CMD + record + CKS
	if _, err := io.ReadFull(u.r, body); err != nil {
		return 0, nil, unexpected(err)
	}

	cmd, rec, cks := body[0], body[1:len(body)-1], body[len(body)-1]
	sum := length ^ cmd
	for _, b := range rec {
		sum ^= b
	}
	if sum != cks {
		return 0, nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrChecksum, cks, sum)
	}
	return cmd, rec, nil
}

// sync consumes bytes up to and including SOF0 SOF1.
func (u *Unwrapper) sync() error {
	prev := -1
	for {
		b, err := u.r.ReadByte()
		if err != nil {
			return err
		}
		if prev == SOF0 && b == SOF1 {
			return nil
		}
		prev = int(b)
	}
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
