package wsclient

import (
	"bufio"
	"context"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// wsGUID is the RFC 6455 §1.3 magic string used when deriving
// Sec-WebSocket-Accept from Sec-WebSocket-Key. Reused byte-for-byte from
// RFC 6455 §1.3.
const wsGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// handshakeResult carries what the caller needs once the Upgrade
// succeeds: the live socket and whether the server accepted compression.
type handshakeResult struct {
	conn     net.Conn
	compress bool
}

// dial opens the transport-level connection for url (tcp or tls, or a
// UNIX socket when cfg.UnixSocket is set) without performing the HTTP
// Upgrade yet.
func dial(cfg *Config, u *url.URL, timeout time.Duration) (net.Conn, error) {
	if cfg.UnixSocket != "" {
		d := net.Dialer{Timeout: timeout}
		return d.DialContext(context.Background(), "unix", cfg.UnixSocket)
	}

	host := u.Host
	if !strings.Contains(host, ":") {
		if u.Scheme == "wss" {
			host += ":443"
		} else {
			host += ":80"
		}
	}

	d := net.Dialer{Timeout: timeout}
	if u.Scheme == "wss" {
		tlsCfg := cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{InsecureSkipVerify: !cfg.RejectUnauthorized} //nolint:gosec // opt-in via Config.RejectUnauthorized
		}
		return tls.DialWithDialer(&d, "tcp", host, tlsCfg)
	}
	return d.Dial("tcp", host)
}

// handshake performs the client-side Upgrade request described in
// SPEC_FULL.md §5.1: build the request, send it over conn, read the HTTP
// response, and verify Sec-WebSocket-Accept on a 101.
func handshake(conn net.Conn, cfg *Config, u *url.URL) (*handshakeResult, error) {
	var keyBytes [16]byte
	randomBytes(keyBytes[:])
	key := base64.StdEncoding.EncodeToString(keyBytes[:])

	req := buildUpgradeRequest(cfg, u, key)
	if _, err := conn.Write(req); err != nil {
		return nil, errors.Wrap(err, "wsclient: writing handshake request")
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return nil, errors.Wrap(err, "wsclient: reading handshake response")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "status %d", resp.StatusCode)
	}

	accept := resp.Header.Get("Sec-WebSocket-Accept")
	if accept != wsAcceptKey(key) {
		return nil, ErrInvalidServerKey
	}

	if br.Buffered() > 0 {
		// Bytes already sent by the server (possibly the start of the
		// first frame) must not be dropped on the floor.
		buffered := make([]byte, br.Buffered())
		_, _ = br.Read(buffered)
		conn = &prefetchedConn{Conn: conn, prefix: buffered}
	}

	compress := cfg.Compress && strings.Contains(strings.ToLower(resp.Header.Get("Sec-WebSocket-Extensions")), "-deflate")

	return &handshakeResult{conn: conn, compress: compress}, nil
}

// buildUpgradeRequest renders the GET /path HTTP/1.1 Upgrade request per
// spec §4.1.
func buildUpgradeRequest(cfg *Config, u *url.URL, key string) []byte {
	path := u.RequestURI()
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", u.Host)
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	fmt.Fprintf(&b, "Sec-WebSocket-Key: %s\r\n", key)
	b.WriteString("Sec-WebSocket-Version: 13\r\n")
	if cfg.Subprotocol != "" {
		fmt.Fprintf(&b, "Sec-WebSocket-Protocol: %s\r\n", cfg.Subprotocol)
	}
	if cfg.Origin != "" {
		fmt.Fprintf(&b, "Origin: %s\r\n", cfg.Origin)
	}
	if cfg.Compress {
		b.WriteString("Sec-WebSocket-Extensions: permessage-deflate, client_max_window_bits\r\n")
	}
	for k, v := range cfg.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}

	cookie := joinCookies(cfg)
	if cookie != "" {
		fmt.Fprintf(&b, "Cookie: %s\r\n", cookie)
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// joinCookies renders cfg.Cookies (plus the optional auth cookie) as
// "name=value" pairs separated by ", " into a single header value, per
// spec §4.1.
func joinCookies(cfg *Config) string {
	var pairs []string
	for name, value := range cfg.Cookies {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, value))
	}
	if frag := authCookieFragment(cfg); frag != "" {
		pairs = append(pairs, frag)
	}
	return strings.Join(pairs, ", ")
}

// wsAcceptKey computes base64(SHA1(key || GUID)) per RFC 6455 §1.3, used
// here to verify the server's Sec-WebSocket-Accept rather than produce it.
func wsAcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(wsGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// prefetchedConn prepends bytes already consumed from the buffered HTTP
// reader during the handshake back onto the stream the frame parser sees.
type prefetchedConn struct {
	net.Conn
	prefix []byte
}

func (p *prefetchedConn) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.Conn.Read(b)
}
