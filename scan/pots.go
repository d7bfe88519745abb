package scan

import (
	"log/slog"

	"github.com/verbnoun/bartleby-sub000/config"
)

// PotDelta is one pot whose normalized value moved past the change
// threshold this scan.
type PotDelta struct {
	Pot   int
	Value float64
}

// potBank tracks the last reported value per pot and suppresses jitter
// below the configured hysteresis threshold.
type potBank struct {
	adcMax    float64
	threshold float64
	values    [config.NumPots]float64
	primed    [config.NumPots]bool
}

func newPotBank(adcMax, threshold float64) *potBank {
	return &potBank{adcMax: adcMax, threshold: threshold}
}

// Values returns the last reported normalized value of every pot, for the
// connection burst.
func (b *potBank) Values() []float64 {
	out := make([]float64, config.NumPots)
	copy(out, b.values[:])
	return out
}

// scan reads every pot and returns the ones that moved. Read faults skip
// the pot for this scan; transient ADC noise inside the threshold is
// absorbed silently.
func (b *potBank) scan(reader AnalogReader) []PotDelta {
	var deltas []PotDelta
	for pot := 0; pot < config.NumPots; pot++ {
		raw, err := reader.ReadChannel(potChannel(pot))
		if err != nil {
			slog.Error("scan: pot read failed", "pot", pot, "err", err)
			continue
		}
		v := float64(raw) / b.adcMax
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		if b.primed[pot] && absDiff(v, b.values[pot]) < b.threshold {
			continue
		}
		b.values[pot] = v
		b.primed[pot] = true
		deltas = append(deltas, PotDelta{Pot: pot, Value: v})
	}
	return deltas
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
