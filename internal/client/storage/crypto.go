package storage

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealedFile is returned when a sealed vault file cannot be opened,
// either because the file key is wrong or the file was modified.
var ErrSealedFile = errors.New("cannot open sealed vault file")

// NewAEADFromKey derives the whole-file cipher from the file key.
// This is separate from the per-credential cipher in package passkey.
func NewAEADFromKey(fileKey string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(fileKey))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// Seal compresses plain with LZMA and encrypts it under fileKey.
// The result is nonce || ciphertext.
func Seal(plain []byte, fileKey string) ([]byte, error) {
	aead, err := NewAEADFromKey(fileKey)
	if err != nil {
		return nil, err
	}
	packed, err := compress(plain)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(packed)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, packed, nil), nil
}

// Open reverses Seal.
func Open(sealed []byte, fileKey string) ([]byte, error) {
	aead, err := NewAEADFromKey(fileKey)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: file too short", ErrSealedFile)
	}
	nonce, data := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	packed, err := aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedFile, err)
	}
	return decompress(packed)
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create lzma writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedFile, err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedFile, err)
	}
	return plain, nil
}
