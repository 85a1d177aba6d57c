package midi

import "fmt"

// Sharps are written with '*' so names stay readable on narrow displays.
var noteNames = [12]string{"C", "C*", "D", "D*", "E", "F", "F*", "G", "G*", "A", "A*", "B"}

// PitchName returns the note name and octave of a MIDI pitch, e.g. 60 -> "C4".
func PitchName(pitch uint8) string {
	return fmt.Sprintf("%s%d", noteNames[pitch%12], Octave(pitch))
}

// NoteName returns the name of pitch without the octave.
func NoteName(pitch uint8) string {
	return noteNames[pitch%12]
}

// Octave returns the octave of pitch, where pitch 0 is in octave -1.
func Octave(pitch uint8) int {
	return int(pitch)/12 - 1
}
