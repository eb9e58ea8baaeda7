package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = strings.Repeat("ab", 32)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("alice: hello\nbob: hi")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "alice")

	_, err = hex.DecodeString(sealed)
	require.NoError(t, err)

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "alice: hello\nbob: hi", opened)
}

func TestNilCipherPassesThrough(t *testing.T) {
	c, err := NewCipher("")
	require.NoError(t, err)
	require.Nil(t, c)

	sealed, err := c.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", sealed)
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	_, err := NewCipher("zz")
	assert.Error(t, err)

	_, err = NewCipher("abcd")
	assert.ErrorIs(t, err, ErrKeyLength)
}

func TestDecryptWithWrongKey(t *testing.T) {
	a, err := NewCipher(testKey)
	require.NoError(t, err)
	b, err := NewCipher(strings.Repeat("cd", 32))
	require.NoError(t, err)

	sealed, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.Error(t, err)
}
