package pipeline

import (
	"log/slog"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// RPN controller numbers used by the zone setup sequence.
const (
	ccRPNMSB         = 101
	ccRPNLSB         = 100
	ccDataEntry      = 6
	ccResetAll       = 121
	ccAllNotesOff    = 123
	rpnPitchBendSens = 0
	rpnMPEConfig     = 6
)

// SetupZone establishes the MPE zone on a fresh receiver: controller reset,
// all-notes-off, the MPE configuration RPN sizing the member block, and the
// pitch bend sensitivity for the manager channel and (zone-wide, sent on the
// first member) the member channels. Everything here is CC traffic, so it
// passes the note gate.
func (p *Pipeline) SetupZone() {
	cfg := p.cfg.MPE
	mgrCh := cfg.ManagerChannel
	members := int(cfg.LastMember-cfg.FirstMember) + 1

	p.sender.Send(midi.ControlChange(mgrCh, ccResetAll, 0))
	p.sender.Send(midi.ControlChange(mgrCh, ccAllNotesOff, 0))

	// MPE configuration RPN: member block size.
	p.sendRPN(mgrCh, rpnMPEConfig, uint8(members))

	// Pitch bend sensitivity: narrow on the manager, wide per note.
	p.sendRPN(mgrCh, rpnPitchBendSens, cfg.ManagerBend)
	p.sendRPN(cfg.FirstMember, rpnPitchBendSens, cfg.MemberBend)

	slog.Info("pipeline: MPE zone configured",
		"manager", mgrCh, "members", members,
		"manager_bend", cfg.ManagerBend, "member_bend", cfg.MemberBend)
}

func (p *Pipeline) sendRPN(channel, rpn, value uint8) {
	p.sender.Send(midi.ControlChange(channel, ccRPNMSB, 0))
	p.sender.Send(midi.ControlChange(channel, ccRPNLSB, rpn))
	p.sender.Send(midi.ControlChange(channel, ccDataEntry, value))
}

// chimeNote pairs a synthetic note id with an interval above the base root.
type chimeNote struct {
	id       int
	interval int
}

// greeting is a quick ascending major triad, each voice on its own member
// channel like any played note would be.
var greeting = []chimeNote{
	{-1, 12},
	{-2, 16},
	{-3, 19},
}

// PlayChime sounds the greeting on synthetic note ids through the normal
// allocation and preamble path, bypassing the (still closed) note gate.
// Blocks for the chime duration; startup only.
func (p *Pipeline) PlayChime(step time.Duration) {
	for _, cn := range greeting {
		n := p.mgr.AddNote(cn.id, p.cfg.BaseRootNote+cn.interval, 96)
		n.Timbre = TimbreCenter
		n.Pressure = Pressure7(0.6)
		n.PitchBend = BendCenter

		p.sender.send(midi.ControlChange(n.Channel, 74, n.Timbre), false)
		p.sender.send(midi.AfterTouch(n.Channel, n.Pressure), false)
		p.sender.send(midi.Pitchbend(n.Channel, 0), false)
		p.sender.send(midi.NoteOn(n.Channel, uint8(n.MidiNote), n.Velocity), false)
		time.Sleep(step)
	}
	time.Sleep(step)
	for _, cn := range greeting {
		n, ok := p.mgr.Note(cn.id)
		if !ok || !n.Active {
			continue
		}
		p.sender.send(midi.AfterTouch(n.Channel, 0), false)
		p.sender.send(midi.NoteOff(n.Channel, uint8(n.MidiNote)), false)
		p.mgr.ReleaseNote(cn.id)
	}
	slog.Debug("pipeline: greeting chime played")
}

// Startup runs the full bring-up sequence and opens the note gate.
func (p *Pipeline) Startup(chimeStep time.Duration) {
	p.SetupZone()
	if chimeStep > 0 {
		p.PlayChime(chimeStep)
	}
	p.sender.EnableNotes()
}
