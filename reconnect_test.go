package wsclient

import (
	"testing"
	"time"
)

// TestReconnectScheduledAfterFailedDial is the regression case for the
// review finding: a failed Connecting → Closed transition (dial error)
// must still arm a reconnect when Config.ReconnectDelay > 0, even though
// the connection never reached Open once. A nonexistent unix socket path
// fails dial() immediately and deterministically, with no network
// dependency.
func TestReconnectScheduledAfterFailedDial(t *testing.T) {
	cfg, err := NewConfig(
		WithUnixSocket("/nonexistent/wsclient-test-missing.sock"),
		WithReconnectDelay(15*time.Millisecond),
		WithLogger(discardLogger{}),
	)
	require_NoError(t, err)
	c := New(cfg)

	errCh := make(chan struct{}, 10)
	c.OnError(func(error) { errCh <- struct{}{} })

	err = c.Connect("ws://unused/", "", "")
	require_Error(t, err)
	require_Equal(t, c.State(), StateClosed)

	// The initial dial failure's error event.
	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("initial dial error never emitted")
	}

	// The scheduled reconnect attempt's own (also failing) dial, proving
	// the reconnect loop survived a single failed attempt.
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect attempt never fired after failed dial")
	}

	require_True(t, c.Reconnects() >= 1)
}

// TestNoReconnectWithoutConfiguredDelay confirms a failed dial does not
// arm a reconnect when Config.ReconnectDelay is zero (the default).
func TestNoReconnectWithoutConfiguredDelay(t *testing.T) {
	cfg, err := NewConfig(
		WithUnixSocket("/nonexistent/wsclient-test-missing.sock"),
		WithLogger(discardLogger{}),
	)
	require_NoError(t, err)
	c := New(cfg)

	err = c.Connect("ws://unused/", "", "")
	require_Error(t, err)
	require_Equal(t, c.State(), StateClosed)

	time.Sleep(50 * time.Millisecond)
	require_Equal(t, c.Reconnects(), uint64(0))
}

// TestUserCloseDuringConnectingDisablesReconnect confirms the
// spec §9-decided "close while Connecting" path never arms a reconnect,
// since it is a user-initiated cancellation, not an unplanned close.
func TestUserCloseDuringConnectingDisablesReconnect(t *testing.T) {
	cfg, err := NewConfig(
		WithReconnectDelay(15*time.Millisecond),
		WithLogger(discardLogger{}),
	)
	require_NoError(t, err)
	c := New(cfg)
	c.state = StateConnecting
	c.reconnect = true // simulate an attempt that armed reconnect before Close ran

	err = c.Close(1000, "", true)
	if err != ErrConnecting {
		t.Fatalf("want ErrConnecting, got %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	require_Equal(t, c.Reconnects(), uint64(0))
}
