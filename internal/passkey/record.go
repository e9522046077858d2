package passkey

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const digestLen = 128

// Encode returns the record form of c: the kind name and a text value.
// Ciphertext is base64-encoded.
func Encode(c Credential) (kind, value string) {
	switch v := c.(type) {
	case Digest:
		return KindDigest.String(), string(v)
	case Plaintext:
		return KindPlaintext.String(), string(v)
	case Ciphertext:
		return KindCiphertext.String(), base64.StdEncoding.EncodeToString(v)
	default:
		return "", ""
	}
}

// Decode parses a record produced by Encode.
func Decode(kind, value string) (Credential, error) {
	switch kind {
	case KindDigest.String():
		if len(value) != digestLen || value != strings.ToLower(value) {
			return nil, fmt.Errorf("%w: digest must be %d lowercase hex characters", ErrMalformedRecord, digestLen)
		}
		if _, err := hex.DecodeString(value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return Digest(value), nil
	case KindPlaintext.String():
		return Plaintext(value), nil
	case KindCiphertext.String():
		b, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return Ciphertext(b), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedRecord, kind)
	}
}
