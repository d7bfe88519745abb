// Package usbmidi drives the OS MIDI endpoint that runs in parallel with
// the serial wire.
package usbmidi

import (
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// VirtualPortName is the endpoint name published when no existing output
// port is requested.
const VirtualPortName = "bartleby"

// Out is a pipeline sink backed by an rtmidi output port.
type Out struct {
	drv  *rtmididrv.Driver
	port drivers.Out
	name string
}

// Open connects the endpoint. With an empty name it publishes a virtual
// output port; otherwise it opens the first existing port whose name
// contains the pattern (case-insensitive).
func Open(pattern string) (*Out, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("usbmidi: rtmididrv: %w", err)
	}

	var port drivers.Out
	if pattern == "" {
		port, err = drv.OpenVirtualOut(VirtualPortName)
		if err != nil {
			drv.Close()
			return nil, fmt.Errorf("usbmidi: open virtual out: %w", err)
		}
	} else {
		outs, err := drv.Outs()
		if err != nil {
			drv.Close()
			return nil, fmt.Errorf("usbmidi: list outputs: %w", err)
		}
		for _, o := range outs {
			if containsCI(o.String(), pattern) {
				port = o
				break
			}
		}
		if port == nil {
			drv.Close()
			return nil, fmt.Errorf("usbmidi: no output matching %q", pattern)
		}
		if err := port.Open(); err != nil {
			drv.Close()
			return nil, fmt.Errorf("usbmidi: open %q: %w", port.String(), err)
		}
	}

	slog.Info("usbmidi: endpoint open", "port", port.String())
	return &Out{drv: drv, port: port, name: port.String()}, nil
}

// SendMIDI writes raw MIDI bytes to the endpoint. Failures are logged and
// skipped; the serial wire keeps going regardless.
func (o *Out) SendMIDI(data []byte) error {
	if err := o.port.Send(data); err != nil {
		slog.Error("usbmidi: send failed", "port", o.name, "err", err)
		return err
	}
	return nil
}

// Close shuts the port and the driver down.
func (o *Out) Close() {
	slog.Info("usbmidi: closing endpoint", "port", o.name)
	_ = o.port.Close()
	o.drv.Close()
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
