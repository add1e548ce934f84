package wsclient

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

// Encryptor is the optional symmetric payload encryptor spec §6 names as
// an external collaborator without specifying an implementation.
// Encrypt/Decrypt operate on the already-encoded text payload (after JSON
// stringification, before URI-encoding on the send path; after
// URI-decoding, before JSON parsing on the receive path).
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// secretboxEncryptor is the default Encryptor, using
// golang.org/x/crypto/nacl/secretbox (XSalsa20-Poly1305) keyed by a
// 32-byte shared secret. Each call generates a fresh random nonce,
// prepended to the ciphertext.
type secretboxEncryptor struct {
	key [32]byte
}

// NewSecretboxEncryptor builds the default Encryptor from a 32-byte key.
func NewSecretboxEncryptor(key []byte) (Encryptor, error) {
	if len(key) != 32 {
		return nil, errors.New("wsclient: encryption key must be 32 bytes")
	}
	e := &secretboxEncryptor{}
	copy(e.key[:], key)
	return e, nil
}

func (e *secretboxEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "wsclient: generating nonce")
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+secretbox.Overhead)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, &e.key), nil
}

func (e *secretboxEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, errors.New("wsclient: ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])
	out, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &e.key)
	if !ok {
		return nil, errors.New("wsclient: decryption failed")
	}
	return out, nil
}
