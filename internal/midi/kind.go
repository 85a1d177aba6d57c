package midi

// Kind is the message family selected by bits 6..4 of a status byte.
type Kind uint8

const (
	NoteOff Kind = iota
	NoteOn
	PolyPressure
	ControlChange
	ProgramChange
	ChannelPressure
	PitchBend
	System
)

// kindInfo tells the parser how many data bytes follow a status byte.
// read is what a live source delivers, keep is what ends up in a frame;
// they only differ for the two 14-bit values, which are packed into one
// byte on the way into the buffer.
type kindInfo struct {
	name string
	read int
	keep int
}

var kinds = [8]kindInfo{
	NoteOff:         {"NoteOff", 2, 2},
	NoteOn:          {"NoteOn", 2, 2},
	PolyPressure:    {"PolyPressure", 2, 2},
	ControlChange:   {"ControlChange", 2, 2},
	ProgramChange:   {"ProgramChange", 1, 1},
	ChannelPressure: {"ChannelPressure", 1, 1},
	PitchBend:       {"PitchBend", 2, 1},
	System:          {"System", 0, 0},
}

// System message subtypes, indexed by the low nibble of 0xF0..0xFF.
const (
	SysEx        = 0x0
	TimeCode     = 0x1
	SongPosition = 0x2
	SongSelect   = 0x3
)

var systemKinds = [16]kindInfo{
	SysEx:        {"SysEx", 1, 1}, // vendor ID only, the payload is skipped
	TimeCode:     {"TimeCode", 1, 1},
	SongPosition: {"SongPosition", 2, 1},
	SongSelect:   {"SongSelect", 1, 1},
	0x4:          {"Reserved-4", 0, 0},
	0x5:          {"Reserved-5", 0, 0},
	0x6:          {"TuneRequest", 0, 0},
	0x7:          {"EndOfExclusive", 0, 0},
	0x8:          {"TimingClock", 0, 0},
	0x9:          {"Reserved-9", 0, 0},
	0xA:          {"Start", 0, 0},
	0xB:          {"Continue", 0, 0},
	0xC:          {"Stop", 0, 0},
	0xD:          {"Reserved-13", 0, 0},
	0xE:          {"ActiveSensing", 0, 0},
	0xF:          {"Reset", 0, 0},
}

// KindOf returns the message family of a status byte.
func KindOf(status byte) Kind {
	return Kind((status >> 4) & 0x07)
}

func (k Kind) String() string {
	if int(k) < len(kinds) {
		return kinds[k].name
	}
	return "Unknown"
}

// info returns the table entry for a status byte.
func info(status byte) kindInfo {
	k := KindOf(status)
	if k == System {
		return systemKinds[status&0x0F]
	}
	return kinds[k]
}

// IsRealTime reports whether b is a System Real-Time byte (0xF8..0xFF).
func IsRealTime(b byte) bool {
	return b >= 0xF8
}
