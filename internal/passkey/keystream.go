// Package passkey implements the verifiable secret stored in a vault:
// a credential held as a digest, in plaintext, or as ciphertext, together
// with the passphrase-seeded keystream cipher used to encrypt it.
package passkey

import (
	"crypto/sha512"

	"golang.org/x/crypto/chacha20"
)

// Generator produces the keystream for a passphrase. The first len(passphrase)
// bytes are the passphrase itself; the rest comes from a ChaCha20 stream keyed
// with the first 256 bits of SHA-512(passphrase).
//
// A Generator is not safe for concurrent use.
type Generator struct {
	prefix []byte
	stream *chacha20.Cipher
}

// NewGenerator returns a Generator positioned at the start of the keystream.
func NewGenerator(passphrase string) *Generator {
	sum := sha512.Sum512([]byte(passphrase))
	// Key and nonce sizes are fixed, so this cannot fail.
	stream, err := chacha20.NewUnauthenticatedCipher(sum[:chacha20.KeySize], make([]byte, chacha20.NonceSize))
	if err != nil {
		panic(err)
	}
	return &Generator{prefix: []byte(passphrase), stream: stream}
}

// Read fills p with the next len(p) keystream bytes. It never returns an error.
func (g *Generator) Read(p []byte) (int, error) {
	n := copy(p, g.prefix)
	g.prefix = g.prefix[n:]

	rest := p[n:]
	clear(rest)
	g.stream.XORKeyStream(rest, rest)
	return len(p), nil
}

// Keystream returns the first n bytes of the keystream for passphrase.
func Keystream(passphrase string, n int) []byte {
	out := make([]byte, n)
	_, _ = NewGenerator(passphrase).Read(out)
	return out
}

// Transform XORs data with the keystream for passphrase. It is its own inverse
// and the output always has the same length as data. There is no integrity
// check: a wrong passphrase yields garbage, not an error.
func Transform(data []byte, passphrase string) []byte {
	ks := Keystream(passphrase, len(data))
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ ks[i]
	}
	return out
}
