// Package mpe owns the MPE member-channel pool and the live note table.
// Everything here is plain state manipulation; wire emission lives in the
// pipeline package.
package mpe

import (
	"log/slog"

	"github.com/verbnoun/bartleby-sub000/config"
)

// Note is the live expression record for one sounding (or recently released)
// logical note. Wire-domain values are stored so the pipeline can dedup
// against what was last sent.
type Note struct {
	MidiNote  int
	Channel   uint8
	Velocity  uint8
	Pressure  uint8  // 7-bit channel pressure last sent
	PitchBend uint16 // 14-bit value last sent
	Timbre    uint8  // CC74 value last sent
	Active    bool
}

// Manager allocates member channels to logical notes and tracks their
// state. Key ids are physical key indices; system-generated notes (the
// greeting chime) use synthetic negative ids.
type Manager struct {
	cfg config.MPEConfig

	pool     []uint8                // member channels in allocation order
	assigned map[uint8]map[int]bool // channel → set of key ids
	notes    map[int]*Note          // key id → note state
}

func NewManager(cfg config.MPEConfig) *Manager {
	m := &Manager{
		cfg:      cfg,
		assigned: make(map[uint8]map[int]bool),
		notes:    make(map[int]*Note),
	}
	for ch := cfg.FirstMember; ch <= cfg.LastMember; ch++ {
		m.pool = append(m.pool, ch)
		m.assigned[ch] = make(map[int]bool)
	}
	return m
}

// ManagerChannel is the zone-wide channel used for global messages (pot CCs,
// zone RPNs).
func (m *Manager) ManagerChannel() uint8 {
	return m.cfg.ManagerChannel
}

// AllocateChannel picks the member channel for key. Priority order:
// the key's existing live note, first free channel in pool order, then the
// least-loaded channel with ties to the lowest number. Idempotent for a
// held note.
func (m *Manager) AllocateChannel(key int) uint8 {
	if n, ok := m.notes[key]; ok && n.Active {
		return n.Channel
	}
	for _, ch := range m.pool {
		if len(m.assigned[ch]) == 0 {
			return ch
		}
	}
	best := m.pool[0]
	for _, ch := range m.pool[1:] {
		if len(m.assigned[ch]) < len(m.assigned[best]) {
			best = ch
		}
	}
	return best
}

// AddNote allocates a channel and registers a live note for key. Calling it
// for an already-active key re-uses the existing record and channel.
func (m *Manager) AddNote(key, midiNote int, velocity uint8) *Note {
	ch := m.AllocateChannel(key)
	n, ok := m.notes[key]
	if !ok || !n.Active {
		n = &Note{Channel: ch}
		m.notes[key] = n
		m.assigned[ch][key] = true
	}
	n.MidiNote = midiNote
	n.Velocity = velocity
	n.Active = true
	slog.Debug("note allocated", "key", key, "note", midiNote, "channel", ch, "load", len(m.assigned[ch]))
	return n
}

// Note returns the record for key, if one exists. Released records are
// retained until the next allocation for the same key.
func (m *Manager) Note(key int) (*Note, bool) {
	n, ok := m.notes[key]
	return n, ok
}

// ReleaseNote marks the key's note inactive and frees its slot in the
// channel index. The record itself is kept for diagnostic reads.
func (m *Manager) ReleaseNote(key int) {
	n, ok := m.notes[key]
	if !ok || !n.Active {
		return
	}
	n.Active = false
	delete(m.assigned[n.Channel], key)
	slog.Debug("note released", "key", key, "note", n.MidiNote, "channel", n.Channel)
}

// ActiveKeys returns the key ids with live notes, in pool/channel order so
// batch operations (octave shift) are deterministic.
func (m *Manager) ActiveKeys() []int {
	var out []int
	for _, ch := range m.pool {
		keys := make([]int, 0, len(m.assigned[ch]))
		for k := range m.assigned[ch] {
			keys = append(keys, k)
		}
		// Channels rarely hold more than one note; sort for determinism.
		for i := 1; i < len(keys); i++ {
			for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
				keys[j-1], keys[j] = keys[j], keys[j-1]
			}
		}
		out = append(out, keys...)
	}
	return out
}

// Load reports how many notes are currently assigned to ch.
func (m *Manager) Load(ch uint8) int {
	return len(m.assigned[ch])
}

// ClampOctave bounds an octave value to the configured symmetric range.
func ClampOctave(octave, bound int) int {
	if octave > bound {
		return bound
	}
	if octave < -bound {
		return -bound
	}
	return octave
}
