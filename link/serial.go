// Package link manages the shared serial wire: MIDI bytes out, line-oriented
// text protocol in, and the standalone/connected handshake state machine.
package link

import (
	"fmt"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// MIDIBaud is the classic DIN-MIDI rate the shared wire runs at, 8-N-1.
const MIDIBaud = 31250

// Port wraps a go.bug.st/serial port. The same port carries outbound MIDI
// status bytes and inbound/outbound text lines; nothing but the content type
// distinguishes the two.
type Port struct {
	port serial.Port
}

// Open opens the named serial device at the given baud rate. Failure here is
// a fatal startup fault and is returned to the caller rather than handled.
func Open(device string, baud int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("link: open %s @%d: %w", device, baud, err)
	}
	// Reads poll: the cooperative loop must never block on the wire.
	if err := p.SetReadTimeout(time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("link: set read timeout: %w", err)
	}
	slog.Info("link: port opened", "device", device, "baud", baud)
	return &Port{port: p}, nil
}

// SendMIDI writes raw MIDI bytes to the wire. Write failures are logged and
// swallowed; a bad tick must not take the loop down.
func (p *Port) SendMIDI(data []byte) error {
	if _, err := p.port.Write(data); err != nil {
		slog.Error("link: midi write failed", "err", err)
		return err
	}
	return nil
}

// ReadAvailable reads whatever inbound bytes are waiting, returning 0
// quickly when the wire is idle.
func (p *Port) ReadAvailable(buf []byte) (int, error) {
	n, err := p.port.Read(buf)
	if err != nil {
		slog.Error("link: read failed", "err", err)
		return 0, err
	}
	return n, nil
}

// Close closes the underlying serial port.
func (p *Port) Close() {
	slog.Info("link: closing port")
	_ = p.port.Close()
}
