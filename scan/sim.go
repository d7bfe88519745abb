package scan

import "github.com/verbnoun/bartleby-sub000/config"

// SimBoard is an in-memory AnalogReader for development and tests. Key
// channels rest at full scale (sensor untouched reads the reference
// voltage); pot channels rest at midscale.
type SimBoard struct {
	channels map[int]uint16
	restRaw  uint16
}

func NewSimBoard() *SimBoard {
	b := &SimBoard{
		channels: make(map[int]uint16),
		restRaw:  uint16(config.Default().Sensor.ADCMax),
	}
	for pot := 0; pot < config.NumPots; pot++ {
		b.channels[potChannel(pot)] = b.restRaw / 2
	}
	return b
}

// SetChannel pins a raw sample onto one mux channel.
func (b *SimBoard) SetChannel(n int, raw uint16) {
	b.channels[n] = raw
}

// SetKey pins both pads of a key at once.
func (b *SimBoard) SetKey(key int, leftRaw, rightRaw uint16) {
	l, r := keyChannels(key)
	b.channels[l] = leftRaw
	b.channels[r] = rightRaw
}

// ReleaseKey returns both pads to their untouched rest level.
func (b *SimBoard) ReleaseKey(key int) {
	b.SetKey(key, b.restRaw, b.restRaw)
}

func (b *SimBoard) ReadChannel(n int) (uint16, error) {
	if raw, ok := b.channels[n]; ok {
		return raw, nil
	}
	return b.restRaw, nil
}

// SimEncoder is an in-memory EncoderReader.
type SimEncoder struct {
	pos int
}

func (e *SimEncoder) Position() int { return e.pos }

// Turn advances the encoder by the given number of detents.
func (e *SimEncoder) Turn(detents int) { e.pos += detents }
