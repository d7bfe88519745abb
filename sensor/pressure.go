// Package sensor converts raw velostat ADC samples into normalized pressure
// and differential position values. Pure math, no I/O.
package sensor

import (
	"math"

	"github.com/verbnoun/bartleby-sub000/config"
)

// Model evaluates the voltage-divider inverse and the multi-stage pressure
// envelope for one calibration set. Velostat resistance drops as pressure
// rises, so every mapping here is non-increasing in resistance.
type Model struct {
	cal config.SensorCalibration
}

func NewModel(cal config.SensorCalibration) *Model {
	return &Model{cal: cal}
}

// Resistance derives sensor resistance from a raw ADC sample via the divider
// inverse R = Rs * V / (Vref - V). At or above the rest voltage the sensor is
// untouched and the resistance saturates to +Inf. Out-of-range samples are
// clamped, never rejected — transient ADC noise is not an error.
func (m *Model) Resistance(raw uint16) float64 {
	v := float64(raw) / m.cal.ADCMax * m.cal.VRef
	if v >= m.cal.RestVoltage {
		return math.Inf(1)
	}
	if v <= 0 {
		return m.cal.MinResistance
	}
	r := m.cal.SeriesOhms * v / (m.cal.VRef - v)
	if r < m.cal.MinResistance {
		return m.cal.MinResistance
	}
	return r
}

// Pressure maps resistance to a normalized 0..1 pressure through the 4-band
// envelope. Each band covers a slice of the resistance domain with its own
// power curve and output sub-range; the bands concatenate so the whole
// domain covers 0..1 monotonically (non-increasing in r). Saturates to 0 at
// MaxResistance and 1 at MinResistance.
func (m *Model) Pressure(r float64) float64 {
	c := m.cal
	if r >= c.MaxResistance || math.IsInf(r, 1) {
		return 0
	}
	if r <= c.MinResistance {
		return 1
	}

	// Band boundaries, high resistance to low: light, mid, heavy, max.
	his := [4]float64{c.MaxResistance, c.BandEdges[0], c.BandEdges[1], c.BandEdges[2]}
	los := [4]float64{c.BandEdges[0], c.BandEdges[1], c.BandEdges[2], c.MinResistance}
	floors := [4]float64{0, c.BandCeilings[0], c.BandCeilings[1], c.BandCeilings[2]}
	ceils := [4]float64{c.BandCeilings[0], c.BandCeilings[1], c.BandCeilings[2], 1}

	for i := 0; i < 4; i++ {
		if r > los[i] {
			t := (his[i] - r) / (his[i] - los[i]) // 0 at band entry, 1 at band floor
			out := floors[i] + (ceils[i]-floors[i])*math.Pow(t, c.BandExponents[i])
			return clamp01(out)
		}
	}
	return 1
}

// PressureFromRaw is the composed raw→resistance→pressure path used by the
// key scanner.
func (m *Model) PressureFromRaw(raw uint16) float64 {
	return m.Pressure(m.Resistance(raw))
}

// Position derives the pitch-bend axis from the left/right pressure pair:
// (right-left)/(right+left), 0 when both are 0. Normalizing by the sum makes
// the axis sensitive only to relative skew, not to how hard the key is
// pressed overall.
func Position(left, right float64) float64 {
	sum := left + right
	if sum <= 0 {
		return 0
	}
	return (right - left) / sum
}

// Combine reduces the pair to the single pressure that drives the key state
// machine.
func Combine(left, right float64) float64 {
	return math.Max(left, right)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
