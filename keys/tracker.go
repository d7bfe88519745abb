// Package keys owns the per-key state machines that turn normalized
// left/right pressures into note-lifecycle deltas for the MIDI pipeline.
package keys

import (
	"log/slog"
	"math"
	"time"

	"github.com/verbnoun/bartleby-sub000/config"
	"github.com/verbnoun/bartleby-sub000/sensor"
)

// Phase is the dual-phase activation state of one key.
type Phase int

const (
	Inactive Phase = iota
	InitialTouch
	Active
	ReleasePending
	Released
)

func (p Phase) String() string {
	switch p {
	case Inactive:
		return "inactive"
	case InitialTouch:
		return "initial_touch"
	case Active:
		return "active"
	case ReleasePending:
		return "release_pending"
	case Released:
		return "released"
	}
	return "unknown"
}

// State is the live record for one physical key.
type State struct {
	Phase          Phase
	LeftPressure   float64
	RightPressure  float64
	Position       float64 // -1..1, pitch-bend axis
	Pressure       float64 // combined, drives the state machine
	StrikeVelocity float64 // captured once per activation cycle
	LastUpdate     time.Time
}

// Delta is one changed key as reported to the pipeline. Strike is only
// populated on the activation edge so the pipeline can tell a new note from
// an update to a held one.
type Delta struct {
	Key       int
	Phase     Phase
	Position  float64
	Pressure  float64
	Strike    float64
	HasStrike bool
}

// Tracker runs the state machine for every key on the board.
type Tracker struct {
	thresholds config.KeyThresholds
	states     []State
}

func NewTracker(thresholds config.KeyThresholds, numKeys int) *Tracker {
	return &Tracker{
		thresholds: thresholds,
		states:     make([]State, numKeys),
	}
}

// State returns a copy of the live record for key.
func (t *Tracker) State(key int) State {
	return t.states[key]
}

// Update feeds one scan's normalized left/right pressures for one key and
// reports whether anything the pipeline cares about changed. now is the
// scheduler's monotonic tick time.
func (t *Tracker) Update(key int, left, right float64, now time.Time) (Delta, bool) {
	s := &t.states[key]

	position := sensor.Position(left, right)
	pressure := sensor.Combine(left, right)

	changed := s.Phase != t.advance(s, pressure)
	if !changed {
		changed = differs(s.LeftPressure, left) ||
			differs(s.RightPressure, right) ||
			differs(s.Position, position) ||
			differs(s.Pressure, pressure)
	}

	strike, hasStrike := t.applyEdge(key, s, pressure)

	s.LeftPressure = left
	s.RightPressure = right
	s.Position = position
	s.Pressure = pressure
	s.LastUpdate = now

	if !changed && !hasStrike {
		return Delta{}, false
	}
	return Delta{
		Key:       key,
		Phase:     s.Phase,
		Position:  position,
		Pressure:  pressure,
		Strike:    strike,
		HasStrike: hasStrike,
	}, true
}

// advance computes the next phase without mutating state; used for change
// detection before the edge is applied.
func (t *Tracker) advance(s *State, pressure float64) Phase {
	th := t.thresholds
	switch s.Phase {
	case Inactive:
		if pressure > th.Activation {
			return InitialTouch
		}
	case InitialTouch:
		// One-tick hysteresis window: revert on a false touch, otherwise
		// commit unconditionally.
		if pressure < th.Deactivation {
			return Inactive
		}
		return Active
	case Active:
		if pressure < th.Tracking {
			return ReleasePending
		}
	case ReleasePending:
		if pressure > th.Tracking {
			return Active
		}
		if pressure < th.Deactivation {
			return Released
		}
	case Released:
		if pressure < th.Deactivation {
			return Inactive
		}
		// Rapid re-strike: the key never settled but is being pressed again.
		return Active
	}
	return s.Phase
}

// applyEdge commits the phase transition and captures strike velocity on the
// edges that begin a new activation cycle.
func (t *Tracker) applyEdge(key int, s *State, pressure float64) (strike float64, hasStrike bool) {
	next := t.advance(s, pressure)
	if next == s.Phase {
		return 0, false
	}

	switch {
	case s.Phase == Inactive && next == InitialTouch:
		s.StrikeVelocity = pressure
		strike, hasStrike = pressure, true
	case s.Phase == Released && next == Active:
		s.StrikeVelocity = pressure
		strike, hasStrike = pressure, true
	}

	slog.Debug("key phase transition",
		"key", key, "from", s.Phase.String(), "to", next.String(), "pressure", pressure)
	s.Phase = next
	return strike, hasStrike
}

func differs(a, b float64) bool {
	return math.Abs(a-b) > 1e-9
}
