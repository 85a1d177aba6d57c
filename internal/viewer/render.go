package viewer

import (
	"fmt"

	"github.com/chase3718/midiwire/internal/midi"
)

// systemLines names the system messages that carry no data.
var systemLines = [16]string{
	0x4: "Reserved-4",
	0x5: "Reserved-5",
	0x6: "Tune-request",
	0x7: "End_of_Exclusive",
	0x8: "Timing_clock",
	0x9: "Reserved-9",
	0xA: "Start",
	0xB: "Continue",
	0xC: "Stop",
	0xD: "Reserved-13",
	0xE: "Active-Sensing",
	0xF: "Reset",
}

// connectionTest is the SysEx vendor byte the sender uses to probe the link.
const connectionTest = 0xF1

// Render formats one event as a trace line. Channels print one-based.
// Channel messages are read through gomidi, which keeps data bytes to
// seven bits.
func Render(ev midi.Event) string {
	msg := ev.Message()
	var ch, a, b uint8
	switch {
	case msg.GetNoteOff(&ch, &a, &b):
		return fmt.Sprintf("%02d NF %s", ch+1, note(a, int(b)))
	case msg.GetNoteOn(&ch, &a, &b):
		return fmt.Sprintf("%02d NO %s", ch+1, note(a, int(b)))
	case msg.GetPolyAfterTouch(&ch, &a, &b):
		return fmt.Sprintf("%02d PP %d PR:%d", ch+1, a, b)
	case msg.GetControlChange(&ch, &a, &b):
		return fmt.Sprintf("%02d CC %d (0x%02x) Value:%3d", ch+1, a, a, b)
	case msg.GetProgramChange(&ch, &a):
		return fmt.Sprintf("%02d PC PG:%3d (0x%02x)", ch+1, a, a)
	case msg.GetAfterTouch(&ch, &a):
		return fmt.Sprintf("%02d AT Val:%03d", ch+1, a)
	case ev.Kind() == midi.PitchBend:
		// The packed byte uses all eight bits.
		return fmt.Sprintf("%02d PW Val:%03d", ev.Channel()+1, ev.Data[0])
	}

	d0 := int(ev.Data[0])
	switch sub := ev.Channel(); sub {
	case midi.SysEx:
		if ev.Data[0] == connectionTest {
			return "Connection test"
		}
		return fmt.Sprintf("sx=%03d", d0)
	case midi.TimeCode:
		return fmt.Sprintf("tc,type=%03d", d0)
	case midi.SongPosition:
		return fmt.Sprintf("sp=%03d", d0)
	case midi.SongSelect:
		return fmt.Sprintf("ss=%03d", d0)
	default:
		return systemLines[sub]
	}
}

// note renders pitch and velocity. Names shorter than four characters once
// the octave is zero-padded ("C04") get a two-space gap, others one.
func note(pitch byte, velocity int) string {
	name := midi.NoteName(pitch)
	oct := midi.Octave(pitch)
	gap := " "
	if len(fmt.Sprintf("%s%02d", name, oct)) < 4 {
		gap = "  "
	}
	return fmt.Sprintf("%s%d%s%3d", name, oct, gap, velocity)
}

// StrayLine is printed for a data byte that arrived with no running status.
func StrayLine(b byte) string {
	return fmt.Sprintf("0x%02x == d%d?", b, b)
}
