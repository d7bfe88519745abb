package mpe

import (
	"testing"

	"github.com/verbnoun/bartleby-sub000/config"
)

func newTestManager() *Manager {
	return NewManager(config.Default().MPE)
}

func TestDistinctChannelsForDistinctNotes(t *testing.T) {
	m := newTestManager()
	cfg := config.Default().MPE
	poolSize := int(cfg.LastMember-cfg.FirstMember) + 1

	seen := make(map[uint8]bool)
	for k := 0; k < poolSize; k++ {
		n := m.AddNote(k, 48+k, 100)
		if seen[n.Channel] {
			t.Fatalf("channel %d allocated twice within pool capacity", n.Channel)
		}
		seen[n.Channel] = true
	}
	if len(seen) != poolSize {
		t.Fatalf("got %d distinct channels, want %d", len(seen), poolSize)
	}
}

func TestAllocationIdempotentForHeldNote(t *testing.T) {
	m := newTestManager()

	first := m.AllocateChannel(7)
	m.AddNote(7, 55, 90)
	for i := 0; i < 5; i++ {
		if ch := m.AllocateChannel(7); ch != first {
			t.Fatalf("repeat allocation moved key 7 from channel %d to %d", first, ch)
		}
	}
}

func TestFreeChannelFirstInPoolOrder(t *testing.T) {
	m := newTestManager()
	cfg := config.Default().MPE

	if ch := m.AllocateChannel(0); ch != cfg.FirstMember {
		t.Fatalf("first allocation = channel %d, want %d", ch, cfg.FirstMember)
	}
	m.AddNote(0, 48, 100)
	if ch := m.AllocateChannel(1); ch != cfg.FirstMember+1 {
		t.Fatalf("second allocation = channel %d, want %d", ch, cfg.FirstMember+1)
	}

	// Releasing the first note frees its channel for the next new note.
	m.ReleaseNote(0)
	if ch := m.AllocateChannel(2); ch != cfg.FirstMember {
		t.Fatalf("allocation after release = channel %d, want freed %d", ch, cfg.FirstMember)
	}
}

func TestExhaustionBalancesLoad(t *testing.T) {
	m := newTestManager()
	cfg := config.Default().MPE
	poolSize := int(cfg.LastMember-cfg.FirstMember) + 1

	for k := 0; k < poolSize; k++ {
		m.AddNote(k, 48+k, 100)
	}
	// Pool exhausted: the next allocations must never pick a channel with a
	// strictly greater load than another.
	for k := poolSize; k < poolSize*2; k++ {
		n := m.AddNote(k, 48+k, 100)
		min := m.Load(cfg.FirstMember)
		for ch := cfg.FirstMember; ch <= cfg.LastMember; ch++ {
			if m.Load(ch) < min {
				min = m.Load(ch)
			}
		}
		// The chosen channel had the minimum load before this note landed.
		if m.Load(n.Channel)-1 > min {
			t.Fatalf("key %d landed on channel %d with load %d; a channel with load %d existed",
				k, n.Channel, m.Load(n.Channel)-1, min)
		}
	}
}

func TestReleaseKeepsRecord(t *testing.T) {
	m := newTestManager()

	n := m.AddNote(4, 52, 80)
	ch := n.Channel
	m.ReleaseNote(4)

	got, ok := m.Note(4)
	if !ok {
		t.Fatal("released note record discarded")
	}
	if got.Active {
		t.Fatal("released note still marked active")
	}
	if m.Load(ch) != 0 {
		t.Fatalf("channel %d load = %d after release, want 0", ch, m.Load(ch))
	}

	// Double release is harmless.
	m.ReleaseNote(4)
	if m.Load(ch) != 0 {
		t.Fatal("double release corrupted channel index")
	}
}

func TestSyntheticNegativeIDs(t *testing.T) {
	m := newTestManager()

	chime := m.AddNote(-1, 72, 64)
	phys := m.AddNote(0, 48, 100)
	if chime.Channel == phys.Channel {
		t.Fatalf("synthetic and physical notes share channel %d", chime.Channel)
	}
}

func TestActiveKeysDeterministic(t *testing.T) {
	m := newTestManager()

	m.AddNote(3, 51, 100)
	m.AddNote(1, 49, 100)
	m.AddNote(2, 50, 100)
	m.ReleaseNote(1)

	keys := m.ActiveKeys()
	if len(keys) != 2 {
		t.Fatalf("ActiveKeys = %v, want 2 entries", keys)
	}
	for _, k := range keys {
		if k == 1 {
			t.Fatal("released key 1 still listed active")
		}
	}
}

func TestClampOctave(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {3, 3}, {4, 3}, {-3, -3}, {-5, -3},
	}
	for _, c := range cases {
		if got := ClampOctave(c.in, 3); got != c.want {
			t.Errorf("ClampOctave(%d, 3) = %d, want %d", c.in, got, c.want)
		}
	}
}
