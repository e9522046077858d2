package passkey

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"unicode/utf8"
)

// Kind identifies which representation a Credential holds.
type Kind uint8

const (
	// KindDigest is a hex-encoded SHA-512 digest.
	KindDigest Kind = iota + 1
	// KindPlaintext is a secret in the clear.
	KindPlaintext
	// KindCiphertext is a secret encrypted with Transform.
	KindCiphertext
)

// String returns the record name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDigest:
		return "digest"
	case KindPlaintext:
		return "plaintext"
	case KindCiphertext:
		return "ciphertext"
	default:
		return "unknown"
	}
}

// Credential is a secret that can be verified against another one.
// It is implemented only by Digest, Plaintext and Ciphertext.
//
// Every operation returns a new value; the receiver is never modified.
type Credential interface {
	// Digest returns the SHA-512 digest of the secret. A Ciphertext needs
	// the passphrase it was encrypted with.
	Digest(key Passphrase) (Digest, error)
	// Encrypt returns the Ciphertext of the secret. Ciphertext is returned
	// unchanged, whatever the passphrase.
	Encrypt(passphrase string) (Credential, error)
	// Decrypt returns the Plaintext of the secret. Plaintext is returned unchanged.
	Decrypt(passphrase string) (Credential, error)
	// Check reports whether the receiver and other hold the same secret.
	Check(other Credential, key Passphrase) bool
	// Kind reports the representation.
	Kind() Kind

	sealed()
}

// Digest is the lowercase hex SHA-512 of a secret. It cannot be turned back
// into Plaintext or Ciphertext.
type Digest string

// Plaintext is a secret in the clear.
type Plaintext string

// Ciphertext is a secret transformed with a passphrase. Its length equals
// the byte length of the plaintext.
type Ciphertext []byte

func hashText(b []byte) Digest {
	sum := sha512.Sum512(b)
	return Digest(hex.EncodeToString(sum[:]))
}

// Digest returns d.
func (d Digest) Digest(Passphrase) (Digest, error) { return d, nil }

// Encrypt always fails with ErrCannotEncryptDigest.
func (d Digest) Encrypt(string) (Credential, error) { return nil, ErrCannotEncryptDigest }

// Decrypt always fails with ErrCannotDecryptDigest.
func (d Digest) Decrypt(string) (Credential, error) { return nil, ErrCannotDecryptDigest }

// Check compares digests.
func (d Digest) Check(other Credential, key Passphrase) bool { return check(d, other, key) }

// Kind returns KindDigest.
func (d Digest) Kind() Kind { return KindDigest }

func (Digest) sealed() {}

// Digest hashes the secret. The passphrase is ignored.
func (p Plaintext) Digest(Passphrase) (Digest, error) { return hashText([]byte(p)), nil }

// Encrypt transforms the secret with passphrase.
func (p Plaintext) Encrypt(passphrase string) (Credential, error) {
	return Ciphertext(Transform([]byte(p), passphrase)), nil
}

// Decrypt returns p.
func (p Plaintext) Decrypt(string) (Credential, error) { return p, nil }

// Check compares digests.
func (p Plaintext) Check(other Credential, key Passphrase) bool { return check(p, other, key) }

// Kind returns KindPlaintext.
func (p Plaintext) Kind() Kind { return KindPlaintext }

// String hides the secret from fmt and loggers. Use string(p) to read it.
func (p Plaintext) String() string { return "[SECRET]" }

func (Plaintext) sealed() {}

// Digest decrypts with key and hashes the recovered secret.
func (c Ciphertext) Digest(key Passphrase) (Digest, error) {
	passphrase, ok := key.Get()
	if !ok {
		return "", ErrMissingPassphrase
	}
	plain, err := c.Decrypt(passphrase)
	if err != nil {
		return "", err
	}
	return plain.Digest(NoKey)
}

// Encrypt returns c; ciphertext is never encrypted twice.
func (c Ciphertext) Encrypt(string) (Credential, error) { return c, nil }

// Decrypt recovers the Plaintext. It fails with ErrInvalidRecoveredText
// when the result is not valid UTF-8.
func (c Ciphertext) Decrypt(passphrase string) (Credential, error) {
	out := Transform(c, passphrase)
	if !utf8.Valid(out) {
		return nil, ErrInvalidRecoveredText
	}
	return Plaintext(out), nil
}

// Check compares raw bytes when other is also a Ciphertext, and digests otherwise.
func (c Ciphertext) Check(other Credential, key Passphrase) bool { return check(c, other, key) }

// Kind returns KindCiphertext.
func (c Ciphertext) Kind() Kind { return KindCiphertext }

func (Ciphertext) sealed() {}

// check treats any digest failure as "not equal".
func check(a, b Credential, key Passphrase) bool {
	if ca, ok := a.(Ciphertext); ok {
		if cb, ok := b.(Ciphertext); ok {
			return bytes.Equal(ca, cb)
		}
	}
	if a == nil || b == nil {
		return false
	}

	da, err := a.Digest(key)
	if err != nil {
		return false
	}
	db, err := b.Digest(key)
	if err != nil {
		return false
	}
	return da == db
}
