package wsclient

import (
	"crypto/tls"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/corewire/wsclient/wslog"
)

// PayloadKind selects how outbound payloads are encoded and inbound
// message bodies are decoded. See spec §4.6/§4.7.
type PayloadKind int

const (
	// KindText delivers/accepts UTF-8 strings.
	KindText PayloadKind = iota
	// KindBinary delivers/accepts raw byte slices.
	KindBinary
	// KindBuffer is an alias for KindBinary kept for parity with the
	// distilled spec's four-way enum; it behaves identically.
	KindBuffer
	// KindJSON marshals outbound payloads to JSON text and unmarshals
	// inbound text as JSON, silently dropping malformed bodies (§4.6).
	KindJSON
)

// Config holds the immutable-after-Connect configuration for a Conn. The
// zero value is not valid; build one with NewConfig.
type Config struct {
	// Kind selects the payload mode. Default KindText.
	Kind PayloadKind

	// Masking controls whether outbound frames are masked. RFC 6455
	// requires client frames to be masked; Masking defaults to true.
	// Setting it false is a non-conforming test-only knob (spec §6).
	Masking bool

	// Compress requests permessage-deflate during the handshake.
	// Default true.
	Compress bool

	// ReconnectDelay is the delay before a reconnect attempt after an
	// unplanned close. Zero disables reconnection.
	ReconnectDelay time.Duration

	// EncodeDecode URI-encodes outbound text and URI-decodes inbound
	// text (decode failures are swallowed, the raw string is delivered).
	EncodeDecode bool

	// Encryptor, if set, is applied to text payloads after JSON encoding
	// and before URI encoding on the send path, and after URI decoding and
	// before JSON decoding on the receive path. See crypt.go for the
	// default implementation.
	Encryptor Encryptor

	// RejectUnauthorized controls TLS server certificate verification
	// for wss:// connections. Default true.
	RejectUnauthorized bool

	// TLSConfig, if set, is used verbatim for wss:// dials; Key/Cert/
	// DHParam below are convenience fields used to build one when
	// TLSConfig is nil.
	TLSConfig *tls.Config
	Key       []byte
	Cert      []byte
	DHParam   []byte

	// MaxLength bounds the accepted frame length and, for compressed
	// messages, the inflated message length. Zero means unbounded.
	MaxLength int

	// Subprotocol, if set, is sent as Sec-WebSocket-Protocol.
	Subprotocol string

	// Origin, if set, is sent as Origin.
	Origin string

	// Headers are merged into the handshake request verbatim.
	Headers map[string]string

	// Cookies are joined as "name=value" pairs separated by ", " into a
	// single Cookie header (spec §4.1).
	Cookies map[string]string

	// AuthJWT, if non-empty, is attached as a cookie named by
	// AuthCookieName during the handshake (see auth.go).
	AuthJWT        string
	AuthCookieName string

	// RateLimit, if non-nil, caps the rate of outbound Send/Ping calls.
	// Nil means unthrottled (default).
	RateLimit *rate.Limiter

	// Logger receives lifecycle, protocol, and handshake diagnostics.
	// Defaults to wslog.Default() when nil.
	Logger wslog.Logger

	// UnixSocket, if set, dials this UNIX socket path instead of
	// resolving the URL's host/port over TCP.
	UnixSocket string
}

// NewConfig returns a Config with the documented defaults:
// masking enabled, compression requested, TLS verification on, UTF-8 text
// payloads, no reconnect, no encoding/encryption, no rate limit.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Kind:               KindText,
		Masking:            true,
		Compress:           true,
		RejectUnauthorized: true,
		AuthCookieName:     "wsclient_auth",
	}
	for _, o := range opts {
		o(c)
	}
	if c.Logger == nil {
		c.Logger = wslog.Default()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects configurations that cannot possibly work before a
// socket is ever touched.
func (c *Config) Validate() error {
	if c.Kind < KindText || c.Kind > KindJSON {
		return errors.New("wsclient: invalid payload kind")
	}
	if c.ReconnectDelay < 0 {
		return errors.New("wsclient: reconnect delay must be >= 0")
	}
	if c.MaxLength < 0 {
		return errors.New("wsclient: max length must be >= 0")
	}
	return nil
}

// Option configures a Config inside NewConfig.
type Option func(*Config)

func WithKind(k PayloadKind) Option             { return func(c *Config) { c.Kind = k } }
func WithMasking(b bool) Option                 { return func(c *Config) { c.Masking = b } }
func WithCompression(b bool) Option             { return func(c *Config) { c.Compress = b } }
func WithReconnectDelay(d time.Duration) Option { return func(c *Config) { c.ReconnectDelay = d } }
func WithEncodeDecode(b bool) Option            { return func(c *Config) { c.EncodeDecode = b } }
func WithEncryptor(e Encryptor) Option          { return func(c *Config) { c.Encryptor = e } }
func WithMaxLength(n int) Option                { return func(c *Config) { c.MaxLength = n } }
func WithSubprotocol(p string) Option           { return func(c *Config) { c.Subprotocol = p } }
func WithOrigin(o string) Option                { return func(c *Config) { c.Origin = o } }
func WithTLSConfig(t *tls.Config) Option        { return func(c *Config) { c.TLSConfig = t } }
func WithRejectUnauthorized(b bool) Option {
	return func(c *Config) { c.RejectUnauthorized = b }
}
func WithLogger(l wslog.Logger) Option { return func(c *Config) { c.Logger = l } }
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Config) { c.RateLimit = l }
}
func WithUnixSocket(path string) Option { return func(c *Config) { c.UnixSocket = path } }
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = map[string]string{}
		}
		c.Headers[key] = value
	}
}
func WithCookie(name, value string) Option {
	return func(c *Config) {
		if c.Cookies == nil {
			c.Cookies = map[string]string{}
		}
		c.Cookies[name] = value
	}
}
func WithAuthJWT(token string) Option { return func(c *Config) { c.AuthJWT = token } }
