package pipeline

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
)

// TimbreCenter is the CC74 value for a centered (no skew) key position.
const TimbreCenter = 64

// BendCenter is the 14-bit pitch bend value for a centered position.
const BendCenter = 8192

// Bend14 maps a -1..1 position onto the 14-bit pitch bend domain:
// round(((position+1)/2) * 16383).
func Bend14(position float64) uint16 {
	v := math.Round((clampPos(position) + 1) / 2 * 16383)
	return uint16(v)
}

// Pressure7 maps normalized 0..1 pressure onto the 7-bit channel pressure
// domain.
func Pressure7(pressure float64) uint8 {
	return clamp7(math.Round(pressure * 127))
}

// Timbre7 maps a -1..1 position onto 0..127, centered at 64.
func Timbre7(position float64) uint8 {
	return clamp7(math.Round((clampPos(position) + 1) / 2 * 127))
}

// Velocity7 maps a 0..1 strike pressure onto NoteOn velocity. Floor of 1:
// velocity 0 on the wire means note off.
func Velocity7(strike float64) uint8 {
	v := clamp7(math.Round(strike * 127))
	if v == 0 {
		return 1
	}
	return v
}

// Control7 maps a normalized 0..1 pot value onto a CC value, clamped to
// [0,127].
func Control7(value float64) uint8 {
	return clamp7(math.Round(value * 127))
}

// encode serializes one abstract event into its MPE-compliant wire message.
func encode(e Event) midi.Message {
	switch e.Kind {
	case KindNoteOn:
		return midi.NoteOn(e.Channel, e.Note, e.Value)
	case KindNoteOff:
		return midi.NoteOff(e.Channel, e.Note)
	case KindPressure:
		return midi.AfterTouch(e.Channel, e.Value)
	case KindPitchBend:
		// gomidi takes the bend relative to center.
		return midi.Pitchbend(e.Channel, int16(int(e.Bend)-BendCenter))
	case KindTimbre:
		return midi.ControlChange(e.Channel, 74, e.Value)
	case KindControlChange:
		return midi.ControlChange(e.Channel, e.Controller, e.Value)
	}
	return nil
}

func clampPos(p float64) float64 {
	if p < -1 {
		return -1
	}
	if p > 1 {
		return 1
	}
	return p
}

func clamp7(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
