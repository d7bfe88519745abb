package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verbnoun/bartleby-sub000/config"
	"github.com/verbnoun/bartleby-sub000/link"
	"github.com/verbnoun/bartleby-sub000/mpe"
	"github.com/verbnoun/bartleby-sub000/pipeline"
	"github.com/verbnoun/bartleby-sub000/scan"
	"github.com/verbnoun/bartleby-sub000/usbmidi"
)

// initLogger configures the shared slog logger and calls slog.SetDefault so
// every package routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug, // include file:line in debug mode
	})
	slog.SetDefault(slog.New(h))
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	serialDev := flag.String("serial", "/dev/ttyACM0", "serial device shared with the expression engine (empty to disable)")
	baud := flag.Int("baud", link.MIDIBaud, "serial baud rate")
	cfgPath := flag.String("config", "", "JSON config overrides (defaults apply when empty)")
	midiOut := flag.String("midi-out", "", "existing MIDI output port to use instead of publishing a virtual one")
	noUSB := flag.Bool("no-usb", false, "skip the OS MIDI endpoint")
	sim := flag.Bool("sim", false, "use the simulated analog board (no hardware)")
	chime := flag.Duration("chime", 120*time.Millisecond, "greeting chime step (0 disables)")
	flag.Parse()

	initLogger(*debug)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("startup: config", "err", err)
		os.Exit(1)
	}

	slog.Info("bartleby starting",
		"serial", *serialDev,
		"baud", *baud,
		"keys", config.NumKeys,
		"pots", config.NumPots,
		"base_note", cfg.BaseRootNote,
		"octave_range", cfg.OctaveRange,
	)

	sender := pipeline.NewSender()

	// Both transports are driven in parallel when present; neither is
	// negotiated.
	var text scan.TextSource
	if *serialDev != "" {
		port, err := link.Open(*serialDev, *baud)
		if err != nil {
			slog.Error("startup: serial", "err", err)
			os.Exit(1)
		}
		defer port.Close()
		sender.AddSink(port)
		text = port
	}
	if !*noUSB {
		out, err := usbmidi.Open(*midiOut)
		if err != nil {
			// Degraded but alive: the serial wire still carries MIDI.
			slog.Warn("startup: usb midi unavailable", "err", err)
		} else {
			defer out.Close()
			sender.AddSink(out)
		}
	}

	var board scan.AnalogReader
	var encoder scan.EncoderReader
	if *sim {
		simBoard := scan.NewSimBoard()
		board = simBoard
		encoder = &scan.SimEncoder{}
	} else {
		// The mux/ADC bridge is board-specific and injected here; refusing
		// to start beats pretending to scan.
		slog.Error("startup: no analog board driver on this platform (run with -sim)")
		os.Exit(1)
	}

	mgr := mpe.NewManager(cfg.MPE)
	pipe := pipeline.New(cfg, mgr, sender)
	pipe.Startup(*chime)

	sched := scan.New(cfg, board, encoder, pipe, text)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Run(ctx)
	slog.Info("bartleby stopped")
}
