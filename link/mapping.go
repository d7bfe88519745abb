package link

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/verbnoun/bartleby-sub000/config"
)

// Mapping assigns a MIDI CC number to each pot index. CC 0 marks a pot as
// unassigned; the pipeline emits nothing for it.
type Mapping [config.NumPots]uint8

// DefaultMapping is the standalone fallback: every pot unassigned until a
// peer sends a config message.
func DefaultMapping() Mapping {
	return Mapping{}
}

// CC returns the controller number for pot, or 0 when the pot is unassigned
// or out of range.
func (m Mapping) CC(pot int) uint8 {
	if pot < 0 || pot >= len(m) {
		return 0
	}
	return m[pot]
}

// Assigned reports whether pot carries a live CC assignment.
func (m Mapping) Assigned(pot int) bool {
	return m.CC(pot) != 0
}

// ParseMapping decodes a config line of the form "cc|0=85|1=73|...".
// Any malformed field rejects the whole message; partial application is
// forbidden. Pots not named default to CC 0.
func ParseMapping(line string) (Mapping, error) {
	var m Mapping

	fields := strings.Split(line, "|")
	if len(fields) == 0 || fields[0] != "cc" {
		return m, fmt.Errorf("link: config message missing cc prefix: %q", line)
	}
	for _, f := range fields[1:] {
		if f == "" {
			return Mapping{}, fmt.Errorf("link: empty assignment in config message %q", line)
		}
		pot, cc, ok := strings.Cut(f, "=")
		if !ok {
			return Mapping{}, fmt.Errorf("link: assignment %q is not pot=cc", f)
		}
		potIdx, err := strconv.Atoi(pot)
		if err != nil {
			return Mapping{}, fmt.Errorf("link: non-numeric pot index %q: %w", pot, err)
		}
		ccNum, err := strconv.Atoi(cc)
		if err != nil {
			return Mapping{}, fmt.Errorf("link: non-numeric cc number %q: %w", cc, err)
		}
		if potIdx < 0 || potIdx >= config.NumPots {
			return Mapping{}, fmt.Errorf("link: pot index %d out of range 0..%d", potIdx, config.NumPots-1)
		}
		if ccNum < 0 || ccNum > 127 {
			return Mapping{}, fmt.Errorf("link: cc number %d out of range 0..127", ccNum)
		}
		m[potIdx] = uint8(ccNum)
	}
	return m, nil
}
