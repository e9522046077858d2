package passkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	enc, err := Plaintext("secret").Encrypt("k")
	require.NoError(t, err)
	d, err := Plaintext("secret").Digest(NoKey)
	require.NoError(t, err)

	for _, c := range []Credential{Plaintext("secret"), enc, d} {
		kind, value := Encode(c)
		assert.Equal(t, c.Kind().String(), kind)

		got, err := Decode(kind, value)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []struct {
		name, kind, value string
	}{
		{"unknown kind", "hash", "abc"},
		{"short digest", "digest", "abc"},
		{"uppercase digest", "digest", strings.Repeat("AB", 64)},
		{"non-hex digest", "digest", strings.Repeat("zz", 64)},
		{"bad base64", "ciphertext", "%%%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.kind, tc.value)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestEncode_Nil(t *testing.T) {
	kind, value := Encode(nil)
	assert.Empty(t, kind)
	assert.Empty(t, value)
}
