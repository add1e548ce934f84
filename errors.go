package wsclient

import "github.com/pkg/errors"

// Sentinel errors for the taxonomy described in spec §7. Wrap these with
// errors.Wrap/Wrapf at the call site so %+v on a delivered error event
// carries a stack trace back to the failing operation; errors.Is still
// matches against the sentinel.
var (
	// ErrNotOpen is returned by Ping when the connection is not in the
	// Open state. Send reports the same condition as false with a nil
	// error.
	ErrNotOpen = errors.New("wsclient: connection not open")

	// ErrUnexpectedResponse is emitted when the handshake receives a
	// non-101 HTTP response.
	ErrUnexpectedResponse = errors.New("wsclient: unexpected handshake response")

	// ErrInvalidServerKey is emitted when Sec-WebSocket-Accept does not
	// match the expected derivation from Sec-WebSocket-Key.
	ErrInvalidServerKey = errors.New("wsclient: invalid Sec-WebSocket-Accept")

	// ErrFrameTooLarge is the error behind a 1009 close when a received
	// frame exceeds Config.MaxLength. A compressed message whose inflated
	// payload exceeds the limit is also closed with 1009, without an error
	// event.
	ErrFrameTooLarge = errors.New("wsclient: frame too large")

	// ErrProtocol covers parser-detected RFC violations other than
	// oversized frames (oversized or fragmented control frame, unknown
	// opcode, out-of-order continuation, ...).
	ErrProtocol = errors.New("wsclient: protocol error")

	// ErrClosed is returned by Close when the connection is already closed.
	ErrClosed = errors.New("wsclient: connection closed")

	// ErrConnecting is returned by Close when called while a handshake is
	// still in flight; spec.md §9 leaves this case explicitly undefined,
	// decided here as: cancel the in-flight dial and transition straight
	// to Closed without emitting a close event (no Open was ever emitted).
	ErrConnecting = errors.New("wsclient: close called while connecting")
)
