package wsclient

import (
	"context"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/corewire/wsclient/wsevent"
)

// generation bundles everything that is replaced wholesale on each
// reconnect: the live socket, the receive accumulator, and the
// compression pipelines. Conn itself survives reconnects; a generation
// does not. Every function that touches generation state receives its
// *generation explicitly rather than reading c.gen, so a read-loop
// goroutine stuck mid-parse on a stale generation can never be handed a
// newer one out from under it (see parser.go).
type generation struct {
	id      string
	conn    net.Conn
	acc     accumulator
	body    []byte
	inflate *inflatePipeline
	deflate *deflatePipeline

	compress bool // permessage-deflate accepted by the server for this socket

	closeOnce sync.Once
}

// Conn is a single logical WebSocket connection. It survives reconnects:
// each reconnect attempt replaces the current generation but leaves the
// Conn, its Config, and its event registry in place.
type Conn struct {
	cfg *Config
	id  string

	u        *url.URL
	protocol string
	origin   string

	events *wsevent.Registry

	mu         sync.Mutex
	state      State
	gen        *generation
	reconnects uint64
	reconnect  bool // whether a close should schedule a reconnect attempt

	liveness atomic.Bool

	connectSeq uint64 // bumped on every connect() to invalidate in-flight dials after Close
}

// New constructs a Conn from cfg. cfg is not validated again here; callers
// should build it with NewConfig.
func New(cfg *Config) *Conn {
	return &Conn{
		cfg:    cfg,
		id:     genID(),
		events: wsevent.NewRegistry(),
		state:  StateClosed,
	}
}

// On/Once/RemoveListener expose wsevent.Registry's typed subscription
// surface directly on Conn, per spec §6. Each On*/Once* call returns a
// Subscription that RemoveListener later accepts to drop that one handler
// without disturbing any other handler registered for the same event.
func (c *Conn) OnOpen(fn wsevent.OpenHandler) wsevent.Subscription   { return c.events.OnOpen(fn) }
func (c *Conn) OnceOpen(fn wsevent.OpenHandler) wsevent.Subscription { return c.events.OnceOpen(fn) }
func (c *Conn) OnMessage(fn wsevent.MessageHandler) wsevent.Subscription {
	return c.events.OnMessage(fn)
}
func (c *Conn) OnceMessage(fn wsevent.MessageHandler) wsevent.Subscription {
	return c.events.OnceMessage(fn)
}
func (c *Conn) OnError(fn wsevent.ErrorHandler) wsevent.Subscription {
	return c.events.OnError(fn)
}
func (c *Conn) OnceError(fn wsevent.ErrorHandler) wsevent.Subscription {
	return c.events.OnceError(fn)
}
func (c *Conn) OnClose(fn wsevent.CloseHandler) wsevent.Subscription {
	return c.events.OnClose(fn)
}
func (c *Conn) OnceClose(fn wsevent.CloseHandler) wsevent.Subscription {
	return c.events.OnceClose(fn)
}

func (c *Conn) RemoveAllListeners(name wsevent.Name) { c.events.RemoveAll(name) }

// RemoveListener drops the single handler identified by sub, per spec §6's
// removeListener(event, handler) operation.
func (c *Conn) RemoveListener(sub wsevent.Subscription) { c.events.Remove(sub) }

// State reports the Conn's current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reconnects reports how many reconnect attempts this Conn has started
// after an unplanned close, whether or not they succeeded.
func (c *Conn) Reconnects() uint64 {
	return atomic.LoadUint64(&c.reconnects)
}

// Connect dials rawURL and performs the RFC 6455 Upgrade handshake,
// per spec §4.5's Closed → Connecting → {Open, Closed} transitions.
// protocol and origin are optional (empty string to omit).
func (c *Conn) Connect(rawURL, protocol, origin string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "wsclient: invalid url")
	}

	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return errors.Errorf("wsclient: connect called in state %s", c.state)
	}
	c.u, c.protocol, c.origin = u, protocol, origin
	if c.protocol != "" {
		c.cfg.Subprotocol = c.protocol
	}
	if c.origin != "" {
		c.cfg.Origin = c.origin
	}
	c.state = StateConnecting
	// Armed as soon as a connect attempt begins (not only after a first
	// successful Open), so a dial error or failed handshake on the very
	// first attempt reconnects too, per spec §4.5. A user-initiated
	// Close(..., keepReconnect=false) disables it regardless of this.
	c.reconnect = c.cfg.ReconnectDelay > 0
	c.connectSeq++
	seq := c.connectSeq
	c.mu.Unlock()

	return c.dialAndRun(seq)
}

// dialAndRun performs one dial+handshake attempt and, on success, starts
// the read loop. seq guards against a Close() that arrives while the
// dial is still in flight (spec §9's "close while Connecting" decision:
// cancel and transition straight to Closed, no close event).
func (c *Conn) dialAndRun(seq uint64) error {
	rawConn, err := dial(c.cfg, c.u, 10*time.Second)
	if err != nil {
		return c.abortConnect(seq, errors.Wrap(err, "wsclient: dial"))
	}

	result, err := handshake(rawConn, c.cfg, c.u)
	if err != nil {
		rawConn.Close()
		return c.abortConnect(seq, err)
	}

	c.mu.Lock()
	if seq != c.connectSeq {
		// Close() ran while we were mid-handshake; tear down quietly.
		c.mu.Unlock()
		result.conn.Close()
		return ErrConnecting
	}

	gen := &generation{id: genID(), conn: result.conn, compress: result.compress}
	gen.inflate = newInflatePipeline(c, gen)
	gen.deflate = newDeflatePipeline(c, gen)

	c.gen = gen
	c.state = StateOpen
	c.mu.Unlock()

	if tc, ok := result.conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	c.liveness.Store(true)
	c.events.EmitOpen()

	go c.readLoop(gen)
	return nil
}

// abortConnect handles the Connecting → Closed transition on a dial
// error, non-101 response, or accept-key mismatch (spec §4.1/§4.5). Like
// any other unplanned entry to Closed, it schedules a reconnect when one
// is armed (c.reconnect, set in Connect per Config.ReconnectDelay) —
// otherwise a single failed attempt would permanently end the reconnect
// loop even though nothing user-initiated asked for that.
func (c *Conn) abortConnect(seq uint64, err error) error {
	c.mu.Lock()
	var shouldReconnect bool
	if seq == c.connectSeq {
		c.state = StateClosed
		shouldReconnect = c.reconnect
	}
	c.mu.Unlock()

	c.events.EmitError(err)
	if shouldReconnect {
		c.scheduleReconnect()
	}
	return err
}

// readLoop owns gen until its socket closes or a protocol error tears it
// down. It never touches c.gen directly, only the gen it was handed.
func (c *Conn) readLoop(gen *generation) {
	buf := make([]byte, 32*1024)
	for {
		n, err := gen.conn.Read(buf)
		if n > 0 {
			if ferr := c.feed(gen, buf[:n]); ferr != nil {
				code := 1002
				if errors.Is(ferr, ErrFrameTooLarge) {
					code = 1009
				}
				c.teardown(gen, code, ferr.Error(), ferr)
				return
			}
		}
		if err != nil {
			c.teardown(gen, 1006, "", nil)
			return
		}
	}
}

// writeFrame encodes and writes one frame belonging to gen. It does not
// compress; compressed only sets RSV1 on a payload the deflate pipeline
// has already compressed.
func (c *Conn) writeFrame(gen *generation, code opCode, payload []byte, compressed bool) {
	masked := c.cfg.Masking
	frame := encodeFrame(code, payload, compressed, masked)
	if _, err := gen.conn.Write(frame); err != nil {
		c.teardown(gen, 1006, "", errors.Wrap(err, "wsclient: write"))
	}
}

// writeControl writes a control frame from a copy of payload, since masking
// works in place and the ping/pong payloads are shared literals.
func (c *Conn) writeControl(gen *generation, code opCode, payload []byte) {
	c.writeFrame(gen, code, append([]byte(nil), payload...), false)
}

// Send implements spec §4.7. It returns false without raising an error if
// the connection is not Open, matching the documented "send returns a
// bool" contract.
func (c *Conn) Send(ctx context.Context, payload any, raw bool, replacer func(string, any) any) (bool, error) {
	c.mu.Lock()
	gen, state := c.gen, c.state
	c.mu.Unlock()
	if state != StateOpen {
		return false, nil
	}

	if err := c.allowSend(ctx); err != nil {
		return false, err
	}

	body, code, err := c.encodeOutbound(payload, raw, replacer)
	if err != nil {
		c.events.EmitError(err)
		return false, err
	}

	if gen.compress {
		gen.deflate.enqueue(body, code)
	} else {
		c.writeFrame(gen, code, body, false)
	}
	return true, nil
}

// Ping writes a ping frame with the literal PING payload and clears the
// liveness flag, per spec §4.7.
func (c *Conn) Ping() error {
	c.mu.Lock()
	gen, state := c.gen, c.state
	c.mu.Unlock()
	if state != StateOpen {
		return ErrNotOpen
	}
	if err := c.allowSend(context.Background()); err != nil {
		return err
	}
	c.liveness.Store(false)
	c.writeControl(gen, opPing, pingPayload)
	return nil
}

// Close initiates a graceful close, per spec §4.5 and §6: reason == true
// (passed as keepReconnect) leaves reconnect enabled; any other close
// disables it. Calling Close while still Connecting cancels the in-flight
// dial without ever emitting open or close (spec §9 decision).
func (c *Conn) Close(code int, reason string, keepReconnect bool) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateConnecting:
		c.connectSeq++ // invalidates the in-flight dialAndRun
		c.state = StateClosed
		c.mu.Unlock()
		return ErrConnecting
	}
	gen := c.gen
	c.reconnect = keepReconnect && c.cfg.ReconnectDelay > 0
	c.state = StateClosing
	c.mu.Unlock()

	c.writeFrame(gen, opClose, closeFramePayload(code, reason), false)
	return nil
}

// closeWithCode writes a close frame with a specific status code and
// tears gen down without waiting for a peer acknowledgement. Its caller is
// the inflate pipeline, when an inflated message exceeds Config.MaxLength.
func (c *Conn) closeWithCode(gen *generation, code int, reason string) {
	c.writeFrame(gen, opClose, closeFramePayload(code, reason), false)
	c.teardown(gen, code, reason, nil)
}

// beginPeerClose handles an inbound close frame: reply in kind (unless we
// already initiated closing) and tear the generation down.
func (c *Conn) beginPeerClose(gen *generation, code int, reason string) {
	c.mu.Lock()
	alreadyClosing := c.state == StateClosing
	c.mu.Unlock()
	if !alreadyClosing {
		c.writeFrame(gen, opClose, closeFramePayload(code, reason), false)
	}
	c.teardown(gen, code, reason, nil)
}

// teardown closes gen's socket exactly once, transitions to Closed,
// emits an error (if err is non-nil) followed by the close event, and
// schedules a reconnect if one was left enabled by the close that led
// here.
func (c *Conn) teardown(gen *generation, code int, reason string, err error) {
	gen.closeOnce.Do(func() {
		gen.conn.Close()

		c.mu.Lock()
		wasGen := c.gen == gen
		shouldReconnect := wasGen && c.reconnect
		if wasGen {
			c.state = StateClosed
		}
		c.mu.Unlock()

		if !wasGen {
			// A newer generation already replaced this one; nothing left
			// to report for a socket that's no longer current.
			return
		}

		if err != nil {
			c.events.EmitError(err)
		}
		c.events.EmitClose(code, reason)

		if shouldReconnect {
			c.scheduleReconnect()
		}
	})
}

// reportCompressionError surfaces a deflate/inflate runtime error via the
// error event without tearing the connection down, per spec §7 point 4
// ("known-weak area", preserved rather than silently hardened).
func (c *Conn) reportCompressionError(err error) {
	c.events.EmitError(err)
}
