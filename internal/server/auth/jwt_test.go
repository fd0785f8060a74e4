package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("alice", secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := GetUsernameFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestGetUsernameFromToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("alice", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = GetUsernameFromToken(token, []byte("secret-b"))
	assert.Error(t, err)
}

func TestGetUsernameFromToken_Expired(t *testing.T) {
	token, err := GenerateToken("alice", []byte("s"), -time.Minute)
	require.NoError(t, err)

	_, err = GetUsernameFromToken(token, []byte("s"))
	assert.Error(t, err)
}

func TestGetUsernameFromToken_Garbage(t *testing.T) {
	_, err := GetUsernameFromToken("not-a-token", []byte("s"))
	assert.Error(t, err)
}
