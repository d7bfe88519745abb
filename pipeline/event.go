// Package pipeline turns key and pot deltas into an ordered stream of MIDI
// events and serializes them onto every attached sink, enforcing the MPE
// ordering and dedup contracts.
package pipeline

import "fmt"

// EventKind tags the abstract MIDI event variants. The serializer switches
// over it exhaustively.
type EventKind int

const (
	KindNoteOn EventKind = iota
	KindNoteOff
	KindPressure
	KindPitchBend
	KindTimbre
	KindControlChange
)

func (k EventKind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	case KindPressure:
		return "pressure"
	case KindPitchBend:
		return "pitch_bend"
	case KindTimbre:
		return "timbre"
	case KindControlChange:
		return "control_change"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one abstract MIDI event with its typed payload. Which fields are
// meaningful depends on Kind: Note+Value for note on/off, Value for pressure
// and timbre, Bend for pitch bend, Controller+Value for control changes.
type Event struct {
	Kind       EventKind
	Channel    uint8
	Note       uint8
	Value      uint8
	Controller uint8
	Bend       uint16 // 14-bit absolute pitch bend
}
