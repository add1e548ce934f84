package wsclient

import "context"

// allowSend blocks until Config.RateLimit grants a token, or returns
// immediately if no limiter is configured. This only ever gates the send
// path (see SPEC_FULL.md §4 invariants) — receiving is never throttled.
func (c *Conn) allowSend(ctx context.Context) error {
	if c.cfg.RateLimit == nil {
		return nil
	}
	return c.cfg.RateLimit.Wait(ctx)
}
