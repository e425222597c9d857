// internal/auth/auth_test.go
package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	Init()
	userID := uuid.New().String()

	token, err := CreateJWT(userID)
	require.NoError(t, err)

	sub, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID, sub)
}

func TestJWTRejectsGarbage(t *testing.T) {
	Init()
	_, err := AuthenticateJWT("not.a.token")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("hunter2", Params)
	require.NoError(t, err)

	ok, err := ComparePasswordAndHash("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeHashRejectsMalformed(t *testing.T) {
	_, _, _, err := DecodeHash("$argon2id$bogus")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
