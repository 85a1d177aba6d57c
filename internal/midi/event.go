package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Event is one decoded MIDI message as it is carried in a frame.
type Event struct {
	Status byte
	Data   [2]byte // buffered data bytes, N of them significant
	N      int

	// Wide holds the full 14-bit value of a PitchBend or SongPosition
	// message read from a live source. Data[0] only keeps its low 8 bits.
	Wide uint16
}

// Kind returns the message family of the event.
func (e Event) Kind() Kind { return KindOf(e.Status) }

// Channel returns the zero-based channel in the low nibble of the status.
// For system messages it is the subtype.
func (e Event) Channel() uint8 { return e.Status & 0x0F }

// Bytes returns the status byte followed by the buffered data bytes, which
// is exactly what a sender appends to its frame.
func (e Event) Bytes() []byte {
	out := make([]byte, 0, 1+e.N)
	out = append(out, e.Status)
	return append(out, e.Data[:e.N]...)
}

// Message converts the event into a gomidi message. PitchBend and
// SongPosition are rebuilt from Wide, so events decoded from a frame come
// out with the truncated value. SysEx yields the vendor ID wrapped in
// 0xF0 .. 0xF7.
func (e Event) Message() gomidi.Message {
	switch {
	case e.Kind() == PitchBend, e.Status == 0xF0|SongPosition:
		v := e.Wide
		if v == 0 {
			v = uint16(e.Data[0])
		}
		return gomidi.Message{e.Status, byte(v & 0x7F), byte(v>>7) & 0x7F}
	case e.Status == 0xF0|SysEx:
		return gomidi.Message{e.Status, e.Data[0], 0xF7}
	}
	return gomidi.Message(e.Bytes())
}

func (e Event) String() string {
	switch e.Kind() {
	case NoteOff, NoteOn, PolyPressure:
		return fmt.Sprintf("%s ch=%d %s % x", info(e.Status).name, e.Channel()+1, PitchName(e.Data[0]), e.Bytes())
	case System:
		return fmt.Sprintf("%s % x", info(e.Status).name, e.Bytes())
	}
	return fmt.Sprintf("%s ch=%d % x", info(e.Status).name, e.Channel()+1, e.Bytes())
}
