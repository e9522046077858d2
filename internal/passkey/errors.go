package passkey

import "errors"

var (
	// ErrCannotEncryptDigest is returned when encrypting a Digest.
	ErrCannotEncryptDigest = errors.New("passkey: cannot encrypt a digest")
	// ErrCannotDecryptDigest is returned when decrypting a Digest.
	ErrCannotDecryptDigest = errors.New("passkey: cannot decrypt a digest")
	// ErrMissingPassphrase is returned when a Ciphertext is digested without a passphrase.
	ErrMissingPassphrase = errors.New("passkey: passphrase required")
	// ErrInvalidRecoveredText is returned when decrypted bytes are not valid UTF-8.
	// A wrong passphrase and corrupted ciphertext look the same.
	ErrInvalidRecoveredText = errors.New("passkey: recovered text is not valid UTF-8")
	// ErrMalformedRecord is returned by Decode for records it cannot parse.
	ErrMalformedRecord = errors.New("passkey: malformed record")
)

// Passphrase is an optional key. The zero value, NoKey, holds no key.
type Passphrase struct {
	value string
	set   bool
}

// NoKey is the absent passphrase.
var NoKey = Passphrase{}

// Key wraps s as a present passphrase. Key("") is present and empty.
func Key(s string) Passphrase {
	return Passphrase{value: s, set: true}
}

// Get returns the passphrase and whether one is present.
func (p Passphrase) Get() (string, bool) {
	return p.value, p.set
}
