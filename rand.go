package wsclient

import "crypto/rand"

// randomBytes fills b with cryptographically random bytes, used for both
// the Sec-WebSocket-Key nonce and per-frame masking keys. A read failure
// from the OS CSPRNG is treated as fatal to the process that would
// otherwise silently send predictable masks; crypto/rand.Read only
// returns an error if the underlying source is broken.
func randomBytes(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic("wsclient: crypto/rand unavailable: " + err.Error())
	}
}
