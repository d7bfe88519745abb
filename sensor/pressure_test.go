package sensor

import (
	"math"
	"testing"

	"github.com/verbnoun/bartleby-sub000/config"
)

func testModel() *Model {
	return NewModel(config.Default().Sensor)
}

func TestPressureBoundsAndMonotonicity(t *testing.T) {
	m := testModel()
	cal := config.Default().Sensor

	prev := math.Inf(1)
	prevP := 0.0
	// Sweep resistance downward from above the light bound to below the
	// hard-press bound; pressure must stay in [0,1] and never decrease.
	for r := cal.MaxResistance * 2; r > cal.MinResistance/2; r *= 0.98 {
		p := m.Pressure(r)
		if p < 0 || p > 1 {
			t.Fatalf("Pressure(%v) = %v out of [0,1]", r, p)
		}
		if r < prev && p < prevP {
			t.Fatalf("Pressure not monotonic: Pressure(%v)=%v < Pressure(%v)=%v", r, p, prev, prevP)
		}
		prev, prevP = r, p
	}
}

func TestPressureSaturation(t *testing.T) {
	m := testModel()
	cal := config.Default().Sensor

	if got := m.Pressure(math.Inf(1)); got != 0 {
		t.Errorf("Pressure(+Inf) = %v, want 0", got)
	}
	if got := m.Pressure(cal.MaxResistance); got != 0 {
		t.Errorf("Pressure(MaxResistance) = %v, want 0", got)
	}
	if got := m.Pressure(cal.MinResistance); got != 1 {
		t.Errorf("Pressure(MinResistance) = %v, want 1", got)
	}
	if got := m.Pressure(0); got != 1 {
		t.Errorf("Pressure(0) = %v, want 1", got)
	}
}

func TestPressureBandContinuity(t *testing.T) {
	m := testModel()
	cal := config.Default().Sensor

	// At each interior band edge the curve must land on the configured
	// ceiling from both sides.
	for i, edge := range cal.BandEdges {
		above := m.Pressure(edge * 1.0001)
		below := m.Pressure(edge * 0.9999)
		want := cal.BandCeilings[i]
		if math.Abs(above-want) > 0.01 || math.Abs(below-want) > 0.01 {
			t.Errorf("band edge %d (%vΩ): above=%v below=%v want≈%v", i, edge, above, below, want)
		}
	}
}

func TestResistanceRestSaturation(t *testing.T) {
	m := testModel()
	// Full-scale sample means no current through the sensor: untouched.
	if r := m.Resistance(65535); !math.IsInf(r, 1) {
		t.Errorf("Resistance(full scale) = %v, want +Inf", r)
	}
	// A zero sample clamps to the hard-press bound rather than erroring.
	if r := m.Resistance(0); r != config.Default().Sensor.MinResistance {
		t.Errorf("Resistance(0) = %v, want MinResistance", r)
	}
}

func TestPosition(t *testing.T) {
	cases := []struct {
		left, right, want float64
	}{
		{0, 0, 0},
		{0.5, 0.5, 0},
		{0, 0.5, 1},
		{0.5, 0, -1},
		{0.2, 0.6, 0.5},
	}
	for _, c := range cases {
		got := Position(c.left, c.right)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Position(%v, %v) = %v, want %v", c.left, c.right, got, c.want)
		}
		if got < -1 || got > 1 {
			t.Errorf("Position(%v, %v) = %v out of [-1,1]", c.left, c.right, got)
		}
	}
}

func TestPositionAntisymmetric(t *testing.T) {
	for l := 0.0; l <= 1.0; l += 0.13 {
		for r := 0.01; r <= 1.0; r += 0.17 {
			if got, want := Position(l, r), -Position(r, l); math.Abs(got-want) > 1e-12 {
				t.Fatalf("Position(%v,%v)=%v != -Position(%v,%v)=%v", l, r, got, r, l, -want)
			}
		}
	}
}

func TestCombine(t *testing.T) {
	if got := Combine(0.3, 0.7); got != 0.7 {
		t.Errorf("Combine(0.3, 0.7) = %v, want 0.7", got)
	}
	if got := Combine(0.9, 0.1); got != 0.9 {
		t.Errorf("Combine(0.9, 0.1) = %v, want 0.9", got)
	}
}
