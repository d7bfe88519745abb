package link

import (
	"bytes"
	"log/slog"
	"time"
	"unicode/utf8"
)

// State is the handshake state with the paired expression engine.
type State int

const (
	Standalone State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "standalone"
}

// Heartbeat is the keep-alive line the peer sends when it has nothing to
// configure.
const Heartbeat = "♡"

// maxLineBuffer bounds the inbound text buffer; a peer that never sends a
// terminator cannot grow it without bound.
const maxLineBuffer = 1024

// Connection runs the standalone/connected state machine over the shared
// wire. It owns the controller mapping: config messages replace it
// wholesale, a timeout resets it to the defaults.
type Connection struct {
	state       State
	lastMessage time.Time
	timeout     time.Duration
	mapping     Mapping
	buf         []byte

	// onMappingApplied fires after a valid config message so the scheduler
	// can burst the current pot values back to the peer.
	onMappingApplied func(Mapping)
}

func NewConnection(timeout time.Duration, onMappingApplied func(Mapping)) *Connection {
	return &Connection{
		state:            Standalone,
		timeout:          timeout,
		mapping:          DefaultMapping(),
		onMappingApplied: onMappingApplied,
	}
}

func (c *Connection) State() State     { return c.state }
func (c *Connection) Mapping() Mapping { return c.mapping }

// Feed appends inbound bytes to the line buffer. Overflow without a
// terminator drops the buffer wholesale.
func (c *Connection) Feed(data []byte) {
	c.buf = append(c.buf, data...)
	if len(c.buf) > maxLineBuffer {
		slog.Error("link: inbound buffer overflow, dropping", "bytes", len(c.buf))
		c.buf = nil
	}
}

// PollLine drains at most one complete text line from the buffer and applies
// it. Called once per scheduler tick. A decode failure on the buffered bytes
// discards the whole buffer; there is no partial-message recovery.
func (c *Connection) PollLine(now time.Time) {
	i := bytes.IndexByte(c.buf, '\n')
	if i < 0 {
		return
	}
	line := c.buf[:i]
	c.buf = c.buf[i+1:]

	if !utf8.Valid(line) {
		slog.Error("link: undecodable inbound text, dropping buffer", "bytes", len(line)+len(c.buf))
		c.buf = nil
		return
	}
	c.handleMessage(trimCR(string(line)), now)
}

func (c *Connection) handleMessage(msg string, now time.Time) {
	switch {
	case msg == Heartbeat:
		c.lastMessage = now
		slog.Debug("link: heartbeat")

	case len(msg) >= 2 && msg[:2] == "cc":
		m, err := ParseMapping(msg)
		if err != nil {
			// Reject the whole message; the previous mapping stands.
			slog.Error("link: bad config message", "err", err)
			return
		}
		c.lastMessage = now
		c.mapping = m
		if c.state != Connected {
			slog.Info("link: peer connected")
			c.state = Connected
		}
		if c.onMappingApplied != nil {
			c.onMappingApplied(m)
		}

	default:
		slog.Warn("link: unrecognized message", "msg", msg)
	}
}

// CheckTimeout polls the staleness of the link. Exceeding the timeout while
// connected forces a reset to standalone: the mapping reverts to defaults
// and any buffered input is flushed, bounding a dropped link to one timeout
// window.
func (c *Connection) CheckTimeout(now time.Time) {
	if c.state != Connected {
		return
	}
	if now.Sub(c.lastMessage) <= c.timeout {
		return
	}
	slog.Warn("link: peer timed out, reverting to standalone",
		"silent", now.Sub(c.lastMessage))
	c.state = Standalone
	c.mapping = DefaultMapping()
	c.buf = nil
}

// trimCR strips a trailing carriage return so peers sending CRLF
// line endings parse identically.
func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
