package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/po-intake/internal/credential"
)

func newRing() *credential.Ring {
	return credential.New(keyring.NewArrayKeyring(nil))
}

func TestGetSetDelete(t *testing.T) {
	r := newRing()

	_, err := r.Get(credential.KeyAPIKey)
	assert.ErrorIs(t, err, credential.ErrNotFound)

	key, err := r.APIKey()
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, r.Set(credential.KeyAPIKey, "secret"))
	key, err = r.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	require.NoError(t, r.Delete(credential.KeyAPIKey))
	require.NoError(t, r.Delete(credential.KeyAPIKey))
	_, err = r.Get(credential.KeyAPIKey)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestDefaultPIN(t *testing.T) {
	r := newRing()
	assert.NoError(t, r.VerifyPIN("1234"))
	assert.ErrorIs(t, r.VerifyPIN("0000"), credential.ErrBadPIN)
	assert.ErrorIs(t, r.VerifyPIN(""), credential.ErrBadPIN)
}

func TestSetPIN(t *testing.T) {
	r := newRing()

	assert.ErrorIs(t, r.SetPIN("123"), credential.ErrPINTooShort)

	require.NoError(t, r.SetPIN("8642"))
	assert.NoError(t, r.VerifyPIN("8642"))
	assert.ErrorIs(t, r.VerifyPIN("1234"), credential.ErrBadPIN)

	stored, err := r.Get(credential.KeyAdminPIN)
	require.NoError(t, err)
	assert.NotEqual(t, "8642", stored)

	require.NoError(t, r.ResetPIN())
	assert.NoError(t, r.VerifyPIN("1234"))
}
