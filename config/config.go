package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Fixed hardware geometry. The key grid and pot bank sizes are baked into
// the board, so they are constants rather than config fields.
const (
	NumKeys = 25 // key indices 0..24, two velostat pads each
	NumPots = 14 // pot indices 0..13

	// Mux channel layout: key i reads channels 2i (left) and 2i+1 (right),
	// pots follow the key block.
	PotChannelBase = 2 * NumKeys
)

// SensorCalibration holds the velostat voltage-divider constants and the
// multi-stage envelope band edges. Resistance falls as pressure rises, so
// band edges run from the light-touch bound down to the max-pressure bound.
type SensorCalibration struct {
	VRef          float64    `json:"vRef"`          // ADC reference voltage
	ADCMax        float64    `json:"adcMax"`        // full-scale raw sample
	SeriesOhms    float64    `json:"seriesOhms"`    // divider series resistor
	RestVoltage   float64    `json:"restVoltage"`   // at/above this the sensor is untouched
	MaxResistance float64    `json:"maxResistance"` // lightest registering touch
	MinResistance float64    `json:"minResistance"` // hardest press
	BandEdges     [3]float64 `json:"bandEdges"`     // light/mid, mid/heavy, heavy/max boundaries
	BandCeilings  [3]float64 `json:"bandCeilings"`  // pressure at each interior band edge
	BandExponents [4]float64 `json:"bandExponents"` // power curve per band, light→max
}

// KeyThresholds are the dual-phase activation pressures. Invariant:
// Activation > Tracking > Deactivation.
type KeyThresholds struct {
	Activation   float64 `json:"activation"`
	Tracking     float64 `json:"tracking"`
	Deactivation float64 `json:"deactivation"`
}

// MPEConfig sizes the zone: one manager channel plus a contiguous block of
// member channels, and the per-zone pitch bend ranges in semitones.
type MPEConfig struct {
	ManagerChannel uint8 `json:"managerChannel"`
	FirstMember    uint8 `json:"firstMember"`
	LastMember     uint8 `json:"lastMember"`
	ManagerBend    uint8 `json:"managerBend"`
	MemberBend     uint8 `json:"memberBend"`
}

// Config is the full static surface loaded once at startup. Nothing in here
// is mutated by the running pipeline.
type Config struct {
	Sensor     SensorCalibration `json:"sensor"`
	Thresholds KeyThresholds     `json:"thresholds"`
	MPE        MPEConfig         `json:"mpe"`

	BaseRootNote int `json:"baseRootNote"` // MIDI note of key 0 at octave 0
	OctaveRange  int `json:"octaveRange"`  // symmetric clamp, ±N octaves

	PotScanInterval   time.Duration `json:"potScanInterval"`
	IdleDelay         time.Duration `json:"idleDelay"`
	ConnectionTimeout time.Duration `json:"connectionTimeout"`

	PotChangeThreshold float64 `json:"potChangeThreshold"` // normalized hysteresis for CC emission
}

// Default returns the shipped calibration. The envelope bands resolve the
// velostat mid-range: a single curve wastes most of its output span on the
// barely-touched tail.
func Default() *Config {
	return &Config{
		Sensor: SensorCalibration{
			VRef:          3.3,
			ADCMax:        65535,
			SeriesOhms:    10_000,
			RestVoltage:   3.15,
			MaxResistance: 150_000,
			MinResistance: 500,
			BandEdges:     [3]float64{40_000, 10_000, 2_000},
			BandCeilings:  [3]float64{0.25, 0.55, 0.85},
			BandExponents: [4]float64{0.8, 1.2, 1.5, 2.0},
		},
		Thresholds: KeyThresholds{
			Activation:   0.10,
			Tracking:     0.08,
			Deactivation: 0.05,
		},
		MPE: MPEConfig{
			ManagerChannel: 0,
			FirstMember:    1,
			LastMember:     15,
			ManagerBend:    2,
			MemberBend:     48,
		},
		BaseRootNote: 48, // C3
		OctaveRange:  3,

		PotScanInterval:   20 * time.Millisecond,
		IdleDelay:         time.Millisecond,
		ConnectionTimeout: 5 * time.Second,

		PotChangeThreshold: 0.01,
	}
}

// Load reads a JSON override file on top of the defaults. A missing path
// returns the defaults; a present-but-broken file is a startup error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configs that would break pipeline invariants.
func (c *Config) Validate() error {
	t := c.Thresholds
	if !(t.Activation > t.Tracking && t.Tracking > t.Deactivation) {
		return fmt.Errorf("thresholds must satisfy activation > tracking > deactivation (got %v > %v > %v)",
			t.Activation, t.Tracking, t.Deactivation)
	}
	if c.MPE.FirstMember > c.MPE.LastMember {
		return fmt.Errorf("empty MPE member range %d..%d", c.MPE.FirstMember, c.MPE.LastMember)
	}
	if c.MPE.ManagerChannel >= c.MPE.FirstMember && c.MPE.ManagerChannel <= c.MPE.LastMember {
		return fmt.Errorf("manager channel %d overlaps member range %d..%d",
			c.MPE.ManagerChannel, c.MPE.FirstMember, c.MPE.LastMember)
	}
	s := c.Sensor
	if s.MinResistance <= 0 || s.MaxResistance <= s.MinResistance {
		return fmt.Errorf("resistance bounds out of order: min %v, max %v", s.MinResistance, s.MaxResistance)
	}
	if c.OctaveRange < 0 {
		return fmt.Errorf("negative octave range %d", c.OctaveRange)
	}
	return nil
}

// Save writes the config as indented JSON, mirroring the load format.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
