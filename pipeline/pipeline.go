package pipeline

import (
	"log/slog"

	"github.com/verbnoun/bartleby-sub000/config"
	"github.com/verbnoun/bartleby-sub000/keys"
	"github.com/verbnoun/bartleby-sub000/link"
	"github.com/verbnoun/bartleby-sub000/mpe"
)

// Pipeline converts sensor deltas into ordered MPE events, consulting the
// zone manager for channel allocation and the note table for dedup. All
// methods run on the scheduler tick; nothing here is safe for concurrent
// callers.
type Pipeline struct {
	cfg    *config.Config
	mgr    *mpe.Manager
	sender *Sender
	octave int
	lastCC map[uint8]uint8 // controller → last value on the wire
}

func New(cfg *config.Config, mgr *mpe.Manager, sender *Sender) *Pipeline {
	return &Pipeline{cfg: cfg, mgr: mgr, sender: sender, lastCC: make(map[uint8]uint8)}
}

// Octave returns the current octave shift.
func (p *Pipeline) Octave() int {
	return p.octave
}

// noteForKey maps a physical key index to its MIDI note at the current
// octave shift.
func (p *Pipeline) noteForKey(key int) int {
	return p.cfg.BaseRootNote + p.octave*12 + key
}

// ProcessKeyDeltas turns one tick's changed keys into wire messages. The
// returned event list is what was emitted, in order.
func (p *Pipeline) ProcessKeyDeltas(deltas []keys.Delta) []Event {
	var events []Event
	for _, d := range deltas {
		note, active := p.mgr.Note(d.Key)
		live := active && note.Active
		switch {
		case d.HasStrike:
			events = append(events, p.newNoteEvents(d)...)
		case live && (d.Phase == keys.Released || d.Phase == keys.Inactive):
			events = append(events, p.releaseEvents(d.Key, note)...)
		case live:
			events = append(events, p.updateEvents(d, note)...)
		}
	}
	p.emit(events)
	return events
}

// newNoteEvents implements the fresh-note ordering contract: timbre-init,
// pressure-init, pitch-bend-init, then NoteOn. The receiving synth must see
// the per-note expression state before the note activates.
func (p *Pipeline) newNoteEvents(d keys.Delta) []Event {
	midiNote := p.noteForKey(d.Key)
	if midiNote < 0 || midiNote > 127 {
		slog.Warn("pipeline: key out of MIDI range, dropped", "key", d.Key, "note", midiNote)
		return nil
	}
	vel := Velocity7(d.Strike)
	n := p.mgr.AddNote(d.Key, midiNote, vel)

	n.Timbre = TimbreCenter
	n.Pressure = Pressure7(d.Pressure)
	n.PitchBend = Bend14(d.Position)

	slog.Debug("pipeline: note on", "key", d.Key, "note", midiNote, "channel", n.Channel, "velocity", vel)
	return []Event{
		{Kind: KindTimbre, Channel: n.Channel, Value: n.Timbre},
		{Kind: KindPressure, Channel: n.Channel, Value: n.Pressure},
		{Kind: KindPitchBend, Channel: n.Channel, Bend: n.PitchBend},
		{Kind: KindNoteOn, Channel: n.Channel, Note: uint8(midiNote), Value: vel},
	}
}

// updateEvents emits the changed subset of timbre/pressure/bend for a held
// note, in that order. Values identical to what is already on the wire are
// suppressed to bound traffic on the 31.25 kbaud link.
func (p *Pipeline) updateEvents(d keys.Delta, n *mpe.Note) []Event {
	var events []Event

	if timbre := Timbre7(d.Position); timbre != n.Timbre {
		n.Timbre = timbre
		events = append(events, Event{Kind: KindTimbre, Channel: n.Channel, Value: timbre})
	}
	if pressure := Pressure7(d.Pressure); pressure != n.Pressure {
		n.Pressure = pressure
		events = append(events, Event{Kind: KindPressure, Channel: n.Channel, Value: pressure})
	}
	if bend := Bend14(d.Position); bend != n.PitchBend {
		n.PitchBend = bend
		events = append(events, Event{Kind: KindPitchBend, Channel: n.Channel, Bend: bend})
	}
	return events
}

// releaseEvents closes out a note: pressure zero, then NoteOff.
func (p *Pipeline) releaseEvents(key int, n *mpe.Note) []Event {
	n.Pressure = 0
	events := []Event{
		{Kind: KindPressure, Channel: n.Channel, Value: 0},
		{Kind: KindNoteOff, Channel: n.Channel, Note: uint8(n.MidiNote)},
	}
	p.mgr.ReleaseNote(key)
	slog.Debug("pipeline: note off", "key", key, "note", n.MidiNote, "channel", n.Channel)
	return events
}

// ProcessPotChange emits the control change for one pot movement, mapped
// through the connection's controller mapping. Unassigned pots emit
// nothing.
func (p *Pipeline) ProcessPotChange(pot int, value float64, mapping link.Mapping) []Event {
	if !mapping.Assigned(pot) {
		return nil
	}
	cc := mapping.CC(pot)
	v := Control7(value)
	if last, ok := p.lastCC[cc]; ok && last == v {
		return nil
	}
	p.lastCC[cc] = v
	events := []Event{{
		Kind:       KindControlChange,
		Channel:    p.mgr.ManagerChannel(),
		Controller: cc,
		Value:      v,
	}}
	p.emit(events)
	return events
}

// BurstPots proactively sends the current value of every mapped pot. Called
// after a config message so the peer's view converges without the player
// touching anything.
func (p *Pipeline) BurstPots(mapping link.Mapping, values []float64) {
	var events []Event
	for pot, v := range values {
		if !mapping.Assigned(pot) {
			continue
		}
		cc := mapping.CC(pot)
		val := Control7(v)
		p.lastCC[cc] = val // the burst always sends, dedup resumes after
		events = append(events, Event{
			Kind:       KindControlChange,
			Channel:    p.mgr.ManagerChannel(),
			Controller: cc,
			Value:      val,
		})
	}
	p.emit(events)
	slog.Debug("pipeline: pot burst", "count", len(events))
}

// ShiftOctave re-maps every active note atomically. Each note keeps its
// channel (it is still live, so allocation is idempotent); the wire sees a
// refreshed expression preamble, NoteOff for the old pitch, NoteOn for the
// new one. The octave value clamps to the configured symmetric bound.
func (p *Pipeline) ShiftOctave(delta int) []Event {
	next := mpe.ClampOctave(p.octave+delta, p.cfg.OctaveRange)
	if next == p.octave {
		return nil
	}
	p.octave = next
	slog.Info("pipeline: octave shift", "octave", next)

	var events []Event
	for _, key := range p.mgr.ActiveKeys() {
		if key < 0 {
			continue // system-generated notes do not track the keyboard octave
		}
		n, ok := p.mgr.Note(key)
		if !ok || !n.Active {
			continue
		}
		oldNote := n.MidiNote
		newNote := p.noteForKey(key)
		if newNote < 0 || newNote > 127 {
			continue
		}
		events = append(events,
			Event{Kind: KindPressure, Channel: n.Channel, Value: n.Pressure},
			Event{Kind: KindPitchBend, Channel: n.Channel, Bend: n.PitchBend},
			Event{Kind: KindNoteOff, Channel: n.Channel, Note: uint8(oldNote)},
			Event{Kind: KindNoteOn, Channel: n.Channel, Note: uint8(newNote), Value: n.Velocity},
		)
		n.MidiNote = newNote
	}
	p.emit(events)
	return events
}

func (p *Pipeline) emit(events []Event) {
	for _, e := range events {
		p.sender.Send(encode(e))
	}
}
