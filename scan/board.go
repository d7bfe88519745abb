// Package scan owns the cooperative scan loop: keys every tick, pots and
// encoder at their own interval, one inbound text line per tick, pipeline
// flush at the end. Single-threaded, run-to-completion ticks.
package scan

import "github.com/verbnoun/bartleby-sub000/config"

// AnalogReader is the abstract multiplexed ADC: select channel n, settle,
// sample. Implementations own the GPIO/mux mechanics and any settling
// delay; the scheduler only sees "read channel N".
type AnalogReader interface {
	ReadChannel(n int) (uint16, error)
}

// EncoderReader reports the rotary encoder's accumulated detent position.
// The scheduler diffs successive reads to produce octave shift steps.
type EncoderReader interface {
	Position() int
}

// Key i occupies two adjacent mux channels: left pad then right pad.
func keyChannels(key int) (left, right int) {
	return 2 * key, 2*key + 1
}

// potChannel maps a pot index onto its mux channel after the key block.
func potChannel(pot int) int {
	return config.PotChannelBase + pot
}
