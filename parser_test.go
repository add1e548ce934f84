package wsclient

import (
	"bytes"
	"net"
	"testing"
	"time"
)

// fakeConn is a minimal net.Conn whose Write side records frames the code
// under test sends, and whose Read side is never exercised by these
// parser-focused tests (feed is called directly instead of running the
// read loop).
type fakeConn struct {
	net.Conn
	written bytes.Buffer
}

func (f *fakeConn) Write(b []byte) (int, error) { return f.written.Write(b) }
func (f *fakeConn) Close() error                { return nil }

func newTestConn(t *testing.T) (*Conn, *generation, *fakeConn) {
	t.Helper()
	cfg, err := NewConfig(WithLogger(discardLogger{}), WithMasking(false))
	require_NoError(t, err)
	c := New(cfg)
	fc := &fakeConn{}
	gen := &generation{id: "test", conn: fc}
	gen.inflate = newInflatePipeline(c, gen)
	gen.deflate = newDeflatePipeline(c, gen)
	c.gen = gen
	c.state = StateOpen
	return c, gen, fc
}

type discardLogger struct{}

func (discardLogger) Noticef(string, ...any) {}
func (discardLogger) Warnf(string, ...any)   {}
func (discardLogger) Errorf(string, ...any)  {}
func (discardLogger) Debugf(string, ...any)  {}
func (discardLogger) Tracef(string, ...any)  {}
func (discardLogger) TraceFrame(string, any) {}

func TestFeedSingleTextFrame(t *testing.T) {
	// spec.md §8 seed scenario 2: 81 05 48 65 6c 6c 6f -> "Hello"
	c, gen, _ := newTestConn(t)
	var got any
	c.OnMessage(func(payload any) { got = payload })

	wire := []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'}
	err := c.feed(gen, wire)
	require_NoError(t, err)
	require_Equal(t, got.(string), "Hello")
}

func TestFeedFragmentedMessage(t *testing.T) {
	// spec.md §8 seed scenario 3.
	c, gen, _ := newTestConn(t)
	var got any
	c.OnMessage(func(payload any) { got = payload })

	part1 := []byte{0x01, 0x03, 'H', 'e', 'l'}
	part2 := []byte{0x80, 0x02, 'l', 'o'}
	require_NoError(t, c.feed(gen, part1))
	require_NoError(t, c.feed(gen, part2))
	require_Equal(t, got.(string), "Hello")
}

func TestFeedResumableAcrossArbitrarySplit(t *testing.T) {
	wire := append([]byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'},
		[]byte{0x81, 0x03, 'f', 'o', 'o'}...)

	for split := 0; split <= len(wire); split++ {
		c, gen, _ := newTestConn(t)
		var got []string
		c.OnMessage(func(payload any) { got = append(got, payload.(string)) })

		require_NoError(t, c.feed(gen, wire[:split]))
		require_NoError(t, c.feed(gen, wire[split:]))

		require_Equal(t, len(got), 2)
		if len(got) == 2 {
			require_Equal(t, got[0], "Hello")
			require_Equal(t, got[1], "foo")
		}
	}
}

func TestFeedPingRespondsWithPong(t *testing.T) {
	// spec.md §8 seed scenario 4: 89 00 -> pong with literal PONG payload.
	c, gen, fc := newTestConn(t)
	err := c.feed(gen, []byte{0x89, 0x00})
	require_NoError(t, err)

	require_True(t, fc.written.Len() > 0)
	out := fc.written.Bytes()
	require_Equal(t, out[0], byte(0x8A)) // FIN|opPong
	require_Equal(t, out[1], byte(4))
	require_True(t, bytes.Equal(out[2:6], pongPayload))
}

func TestFeedCloseFrameEmitsCloseEvent(t *testing.T) {
	// spec.md §8 seed scenario 5: 88 02 03 E8 -> close(1000, "")
	c, gen, _ := newTestConn(t)
	var code int
	var reason string
	closed := make(chan struct{})
	c.OnClose(func(c int, r string) {
		code, reason = c, r
		close(closed)
	})

	err := c.feed(gen, []byte{0x88, 0x02, 0x03, 0xE8})
	require_NoError(t, err)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close event never fired")
	}
	require_Equal(t, code, 1000)
	require_Equal(t, reason, "")
	require_Equal(t, c.State(), StateClosed)
}

func TestFeedOversizedFrameIsRejected(t *testing.T) {
	cfg, err := NewConfig(WithMaxLength(10))
	require_NoError(t, err)
	c := New(cfg)
	fc := &fakeConn{}
	gen := &generation{id: "test", conn: fc}
	gen.inflate = newInflatePipeline(c, gen)
	gen.deflate = newDeflatePipeline(c, gen)
	c.gen = gen
	c.state = StateOpen

	wire := encodeFrame(opText, make([]byte, 11), false, false)
	err = c.feed(gen, wire)
	require_Error(t, err)
}

func TestDispatchRejectsInterleavedMessageStart(t *testing.T) {
	c, gen, _ := newTestConn(t)
	// Start a fragmented message, then try to start a second one before
	// the first's FIN arrives.
	require_NoError(t, c.feed(gen, []byte{0x01, 0x01, 'a'}))
	err := c.feed(gen, []byte{0x01, 0x01, 'b'})
	require_Error(t, err)
}
