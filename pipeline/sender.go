package pipeline

import (
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
)

// Sink is one wire-level MIDI output. The UART link and the OS MIDI
// endpoint both satisfy it; every message fans out to all attached sinks in
// parallel.
type Sink interface {
	SendMIDI(data []byte) error
}

// Sender serializes events onto the attached sinks and gates note-level
// traffic: until the MPE zone is configured (and the greeting chime has
// played) a receiving engine must not see any NoteOn, or it would interpret
// it outside the zone. System messages pass at any time.
type Sender struct {
	sinks      []Sink
	notesReady bool
}

func NewSender(sinks ...Sink) *Sender {
	return &Sender{sinks: sinks}
}

// AddSink attaches another output. Used for the optional OS MIDI endpoint.
func (s *Sender) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// EnableNotes opens the note gate after startup configuration completes.
func (s *Sender) EnableNotes() {
	s.notesReady = true
	slog.Info("pipeline: note gate open")
}

// NotesReady reports whether note-level traffic is currently allowed.
func (s *Sender) NotesReady() bool {
	return s.notesReady
}

// Send writes one message to every sink, applying the note gate. Per-sink
// write failures are logged by the sink and skipped; one dead transport must
// not silence the others.
func (s *Sender) Send(msg midi.Message) {
	s.send(msg, true)
}

func (s *Sender) send(msg midi.Message, gated bool) {
	if len(msg) == 0 {
		return
	}
	if gated && !s.notesReady && !isSystem(msg[0]) {
		slog.Debug("pipeline: note message suppressed before startup", "status", msg[0])
		return
	}
	for _, sink := range s.sinks {
		_ = sink.SendMIDI(msg.Bytes())
	}
}

// isSystem reports whether a status byte is always allowed through the
// gate: control changes (0xB0) and system messages (0xF0).
func isSystem(status byte) bool {
	hi := status & 0xF0
	return hi == 0xB0 || hi == 0xF0
}
