package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoKeys() []*StarkKey {
	return []*StarkKey{
		{ID: "a", PrivateKeyHex: "0x1", AccountID: "100"},
		{ID: "b", PrivateKeyHex: "0x2", AccountID: "200"},
	}
}

func TestKeyRing_Current(t *testing.T) {
	ring := New(twoKeys())
	require.Equal(t, 2, ring.Len())
	assert.Equal(t, "a", ring.Current().ID)
}

func TestKeyRing_Rotate(t *testing.T) {
	ring := New(twoKeys())

	ring.Rotate()
	assert.Equal(t, "b", ring.Current().ID)
	ring.Rotate()
	assert.Equal(t, "a", ring.Current().ID)
}

func TestKeyRing_SkipsDisabled(t *testing.T) {
	ring := New(twoKeys())
	ring.Disable("a")
	assert.Equal(t, "b", ring.Current().ID)

	ring.Disable("b")
	assert.Nil(t, ring.Current())

	ring.Enable("a")
	assert.Equal(t, "a", ring.Current().ID)
}

func TestKeyRing_OnAuthError_DisablesAfterThreeStrikes(t *testing.T) {
	ring := New(twoKeys())

	ring.OnAuthError()
	ring.OnAuthError()
	assert.Equal(t, "a", ring.Current().ID)

	ring.OnAuthError()
	assert.Equal(t, "b", ring.Current().ID, "revoked key no longer offered")
}

func TestKeyRing_Empty(t *testing.T) {
	ring := New(nil)
	assert.Nil(t, ring.Current())
	ring.Rotate()
	ring.MarkUsed()
	ring.OnAuthError()
}

func TestStarkKey_Credentials(t *testing.T) {
	key := &StarkKey{ID: "a", PrivateKeyHex: "0xabc", AccountID: "100"}
	creds, err := key.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "100", creds.AccountID)
}

func TestStarkKey_StringMasksKey(t *testing.T) {
	key := &StarkKey{ID: "a", PrivateKeyHex: "0123456789abcdef0123", AccountID: "100"}
	s := key.String()
	assert.NotContains(t, s, "0123456789abcdef0123")
	assert.Contains(t, s, "0123****")
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvPrivateKeyHex, "0x1a2b")
	t.Setenv(EnvAccountID, "4242")

	ring, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "4242", ring.Current().AccountID)
}

func TestFromEnv_Missing(t *testing.T) {
	t.Setenv(EnvPrivateKeyHex, "")
	t.Setenv(EnvAccountID, "")

	_, err := FromEnv()
	assert.Error(t, err)
}
