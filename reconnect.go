package wsclient

import (
	"sync/atomic"
	"time"
)

// scheduleReconnect arms a one-shot timer honoring Config.ReconnectDelay:
// on fire, it increments the reconnect counter and re-enters Connect with
// the original URL, subprotocol, and origin. time.AfterFunc rather than a
// ticking goroutine, since a reconnect fires at most once per close.
func (c *Conn) scheduleReconnect() {
	time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		if c.state != StateClosed {
			c.mu.Unlock()
			return
		}
		c.state = StateClosed // no-op, kept for clarity at the call site
		c.mu.Unlock()

		n := atomic.AddUint64(&c.reconnects, 1)

		if err := c.Connect(c.u.String(), c.protocol, c.origin); err != nil {
			c.cfg.Logger.Warnf("reconnect attempt %d failed: %v", n, err)
		}
	})
}
