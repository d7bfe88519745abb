package link

import (
	"testing"
	"time"
)

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping("cc|0=85|1=73")
	if err != nil {
		t.Fatalf("ParseMapping: %v", err)
	}
	if m.CC(0) != 85 || m.CC(1) != 73 {
		t.Fatalf("mapping = %v, want pot0=85 pot1=73", m)
	}
	// Pots past the highest specified index default to CC 0.
	for pot := 2; pot < len(m); pot++ {
		if m.Assigned(pot) {
			t.Fatalf("pot %d unexpectedly assigned CC %d", pot, m.CC(pot))
		}
	}
}

func TestParseMappingRejectsMalformed(t *testing.T) {
	bad := []string{
		"dd|0=85",   // wrong prefix
		"cc|0=85|1", // missing =cc
		"cc|x=85",   // non-numeric pot
		"cc|0=abc",  // non-numeric cc
		"cc|99=85",  // pot out of range
		"cc|0=200",  // cc out of range
		"cc|0=85||", // empty assignment
	}
	for _, line := range bad {
		if _, err := ParseMapping(line); err == nil {
			t.Errorf("ParseMapping(%q) accepted malformed input", line)
		}
	}
}

func TestMalformedMessageIsAtomic(t *testing.T) {
	c := NewConnection(time.Second, nil)
	now := time.Now()

	c.Feed([]byte("cc|0=85|1=73\n"))
	c.PollLine(now)
	if c.Mapping().CC(0) != 85 {
		t.Fatal("valid config not applied")
	}

	// A malformed follow-up must leave the previous mapping untouched,
	// including fields that parsed before the broken one.
	c.Feed([]byte("cc|0=99|1=xx\n"))
	c.PollLine(now)
	if c.Mapping().CC(0) != 85 || c.Mapping().CC(1) != 73 {
		t.Fatalf("malformed message partially applied: %v", c.Mapping())
	}
}

func TestConfigConnectsAndBursts(t *testing.T) {
	var burst *Mapping
	c := NewConnection(time.Second, func(m Mapping) { burst = &m })
	now := time.Now()

	if c.State() != Standalone {
		t.Fatalf("initial state = %v, want standalone", c.State())
	}
	c.Feed([]byte("cc|2=11\n"))
	c.PollLine(now)

	if c.State() != Connected {
		t.Fatalf("state after config = %v, want connected", c.State())
	}
	if burst == nil || burst.CC(2) != 11 {
		t.Fatal("mapping-applied callback not fired with new mapping")
	}
}

func TestHeartbeatRefreshesTimeout(t *testing.T) {
	c := NewConnection(time.Second, nil)
	start := time.Now()

	c.Feed([]byte("cc|0=85\n"))
	c.PollLine(start)

	// Heartbeats keep the link alive past the original deadline.
	c.Feed([]byte(Heartbeat + "\n"))
	c.PollLine(start.Add(900 * time.Millisecond))
	c.CheckTimeout(start.Add(1800 * time.Millisecond))
	if c.State() != Connected {
		t.Fatal("heartbeat did not refresh the connection deadline")
	}
}

func TestTimeoutResetsToStandalone(t *testing.T) {
	c := NewConnection(time.Second, nil)
	start := time.Now()

	c.Feed([]byte("cc|0=85\n"))
	c.PollLine(start)
	c.Feed([]byte("cc|")) // partial line left in the buffer

	c.CheckTimeout(start.Add(2 * time.Second))
	if c.State() != Standalone {
		t.Fatalf("state after timeout = %v, want standalone", c.State())
	}
	if c.Mapping().Assigned(0) {
		t.Fatal("timeout did not clear the controller mapping")
	}
	if len(c.buf) != 0 {
		t.Fatal("timeout did not flush the inbound buffer")
	}
}

func TestPartialLinesBuffer(t *testing.T) {
	c := NewConnection(time.Second, nil)
	now := time.Now()

	c.Feed([]byte("cc|0="))
	c.PollLine(now)
	if c.State() != Standalone {
		t.Fatal("partial line applied early")
	}
	c.Feed([]byte("85\n"))
	c.PollLine(now)
	if c.Mapping().CC(0) != 85 {
		t.Fatal("reassembled line not applied")
	}
}

func TestUndecodableBufferDropped(t *testing.T) {
	c := NewConnection(time.Second, nil)
	now := time.Now()

	c.Feed([]byte{0xff, 0xfe, '\n'})
	c.Feed([]byte("trailing"))
	c.PollLine(now)
	if len(c.buf) != 0 {
		t.Fatal("decode failure must drop the whole buffer, not just the bad line")
	}
}

func TestOneLinePerPoll(t *testing.T) {
	var bursts int
	c := NewConnection(time.Second, func(Mapping) { bursts++ })
	now := time.Now()

	c.Feed([]byte("cc|0=85\ncc|0=86\n"))
	c.PollLine(now)
	if bursts != 1 {
		t.Fatalf("one poll drained %d lines, want 1", bursts)
	}
	c.PollLine(now)
	if bursts != 2 || c.Mapping().CC(0) != 86 {
		t.Fatal("second poll did not drain the queued line")
	}
}
