package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestAESGCM_SealOpen(t *testing.T) {
	sealer, err := NewAESGCMFromBase64Key(newKey(t))
	require.NoError(t, err)

	sealed, err := sealer.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "ya29")

	again, err := sealer.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access-token", opened)
}

func TestAESGCM_EmptyStaysEmpty(t *testing.T) {
	sealer, err := NewAESGCMFromBase64Key(newKey(t))
	require.NoError(t, err)

	sealed, err := sealer.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := sealer.Open("")
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestAESGCM_WrongKeyFails(t *testing.T) {
	a, err := NewAESGCMFromBase64Key(newKey(t))
	require.NoError(t, err)
	b, err := NewAESGCMFromBase64Key(newKey(t))
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)
	_, err = b.Open(sealed)
	assert.Error(t, err)

	_, err = a.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNewAESGCMFromBase64Key_Invalid(t *testing.T) {
	for name, key := range map[string]string{
		"empty":      "",
		"not base64": "%%%",
		"wrong size": base64.StdEncoding.EncodeToString([]byte("too-short")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewAESGCMFromBase64Key(key)
			assert.Error(t, err)
		})
	}
}

func TestPlaintext_PassThrough(t *testing.T) {
	var s Sealer = Plaintext{}
	sealed, err := s.Seal("token")
	require.NoError(t, err)
	assert.Equal(t, "token", sealed)
	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", opened)
}
