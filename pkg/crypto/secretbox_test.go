package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 32 bytes, base64-encoded.
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM="

func TestNewSecretBox(t *testing.T) {
	_, err := NewSecretBox("")
	assert.ErrorIs(t, err, ErrInvalidKey)

	for _, key := range []string{
		testKey,
		"a passphrase",
		base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key")),
	} {
		box, err := NewSecretBox(key)
		require.NoError(t, err, key)
		assert.NotNil(t, box)
	}
}

func TestSecretBox_RoundTrip(t *testing.T) {
	box, err := NewSecretBox(testKey)
	require.NoError(t, err)

	sealed, err := box.Seal("sk-live-123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1:"))
	assert.NotContains(t, sealed, "sk-live-123")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", opened)

	again, err := box.Seal("sk-live-123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")
}

func TestSecretBox_Empty(t *testing.T) {
	box, err := NewSecretBox(testKey)
	require.NoError(t, err)

	sealed, err := box.Seal("")
	require.NoError(t, err)
	assert.Equal(t, "", sealed)

	opened, err := box.Open("")
	require.NoError(t, err)
	assert.Equal(t, "", opened)
}

func TestSecretBox_LegacyPlaintextPassesThrough(t *testing.T) {
	box, err := NewSecretBox(testKey)
	require.NoError(t, err)

	opened, err := box.Open("plain-old-key")
	require.NoError(t, err)
	assert.Equal(t, "plain-old-key", opened)
}

func TestSecretBox_WrongKey(t *testing.T) {
	a, err := NewSecretBox("key-a")
	require.NoError(t, err)
	b, err := NewSecretBox("key-b")
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = a.Open("v1:not-base64!!")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = a.Open("v1:" + base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
