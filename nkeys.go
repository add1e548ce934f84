package wsclient

import "github.com/nats-io/nkeys"

// nkeysFromSeed parses an nkey seed, the same key material format
// nats-io/jwt expects for signing claims. Kept as a one-line seam so
// auth.go doesn't need to know nkeys exists beyond this call.
func nkeysFromSeed(seed []byte) (nkeys.KeyPair, error) {
	return nkeys.FromSeed(seed)
}
