package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/verbnoun/bartleby-sub000/config"
	"github.com/verbnoun/bartleby-sub000/keys"
	"github.com/verbnoun/bartleby-sub000/link"
	"github.com/verbnoun/bartleby-sub000/pipeline"
	"github.com/verbnoun/bartleby-sub000/sensor"
)

// TextSource is the inbound half of the shared wire. *link.Port satisfies
// it; tests substitute a scripted source.
type TextSource interface {
	ReadAvailable(buf []byte) (int, error)
}

// Scheduler is the single-threaded cooperative loop. Each tick runs to
// completion: connection age-check, key scan, interval-gated pot/encoder
// scan, at most one inbound text line, then the MIDI pipeline on whatever
// changed. There is no way to abort a tick mid-flight; a slow transport
// stretches the tick rather than splitting an event sequence.
type Scheduler struct {
	cfg     *config.Config
	board   AnalogReader
	encoder EncoderReader
	model   *sensor.Model
	tracker *keys.Tracker
	pots    *potBank
	conn    *link.Connection
	pipe    *pipeline.Pipeline
	text    TextSource

	lastPotScan    time.Time
	lastEncoderPos int
	readBuf        [128]byte
}

// New wires the scan loop. encoder and text may be nil when the hardware or
// the wire half is absent; the loop degrades to the parts that exist.
func New(cfg *config.Config, board AnalogReader, encoder EncoderReader,
	pipe *pipeline.Pipeline, text TextSource) *Scheduler {

	s := &Scheduler{
		cfg:     cfg,
		board:   board,
		encoder: encoder,
		model:   sensor.NewModel(cfg.Sensor),
		tracker: keys.NewTracker(cfg.Thresholds, config.NumKeys),
		pots:    newPotBank(cfg.Sensor.ADCMax, cfg.PotChangeThreshold),
		pipe:    pipe,
	}
	s.conn = link.NewConnection(cfg.ConnectionTimeout, s.onMappingApplied)
	s.text = text
	if encoder != nil {
		s.lastEncoderPos = encoder.Position()
	}
	return s
}

// Connection exposes the handshake state machine (for diagnostics and
// tests).
func (s *Scheduler) Connection() *link.Connection {
	return s.conn
}

// onMappingApplied answers a config message with the current value of every
// mapped pot, so the peer's UI converges immediately.
func (s *Scheduler) onMappingApplied(m link.Mapping) {
	s.pipe.BurstPots(m, s.pots.Values())
}

// Tick runs one full scheduler pass at the given monotonic time.
func (s *Scheduler) Tick(now time.Time) {
	s.conn.CheckTimeout(now)

	keyDeltas := s.scanKeys(now)

	var potDeltas []PotDelta
	if s.lastPotScan.IsZero() || now.Sub(s.lastPotScan) >= s.cfg.PotScanInterval {
		s.lastPotScan = now
		potDeltas = s.pots.scan(s.board)
		s.scanEncoder()
	}

	s.drainText(now)

	// The pipeline runs last so a config line drained this tick applies to
	// this tick's pot deltas.
	if len(keyDeltas) > 0 {
		s.pipe.ProcessKeyDeltas(keyDeltas)
	}
	for _, pd := range potDeltas {
		s.pipe.ProcessPotChange(pd.Pot, pd.Value, s.conn.Mapping())
	}
}

func (s *Scheduler) scanKeys(now time.Time) []keys.Delta {
	var deltas []keys.Delta
	for key := 0; key < config.NumKeys; key++ {
		lch, rch := keyChannels(key)
		lraw, err := s.board.ReadChannel(lch)
		if err != nil {
			slog.Error("scan: key read failed", "key", key, "side", "left", "err", err)
			continue
		}
		rraw, err := s.board.ReadChannel(rch)
		if err != nil {
			slog.Error("scan: key read failed", "key", key, "side", "right", "err", err)
			continue
		}
		left := s.model.PressureFromRaw(lraw)
		right := s.model.PressureFromRaw(rraw)
		if d, changed := s.tracker.Update(key, left, right, now); changed {
			deltas = append(deltas, d)
		}
	}
	return deltas
}

func (s *Scheduler) scanEncoder() {
	if s.encoder == nil {
		return
	}
	pos := s.encoder.Position()
	if diff := pos - s.lastEncoderPos; diff != 0 {
		s.lastEncoderPos = pos
		s.pipe.ShiftOctave(diff)
	}
}

// drainText pulls whatever bytes are waiting on the wire and applies at
// most one complete line.
func (s *Scheduler) drainText(now time.Time) {
	if s.text != nil {
		if n, err := s.text.ReadAvailable(s.readBuf[:]); err == nil && n > 0 {
			s.conn.Feed(s.readBuf[:n])
		}
	}
	s.conn.PollLine(now)
}

// Run drives ticks until the context is cancelled. The only sleep is the
// fixed idle delay between ticks.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scan: loop running",
		"keys", config.NumKeys, "pots", config.NumPots,
		"pot_interval", s.cfg.PotScanInterval, "idle", s.cfg.IdleDelay)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scan: loop stopped")
			return
		default:
		}
		s.Tick(time.Now())
		time.Sleep(s.cfg.IdleDelay)
	}
}
