package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("supersecret123")
	require.NoError(t, err)

	// [0] "" [1] "argon2id" [2] "v=19" [3] "m=65536,t=1,p=4" [4] salt [5] hash
	parts := strings.Split(hash, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, "argon2id", parts[1])
	assert.Equal(t, "v=19", parts[2])
	assert.Equal(t, "m=65536,t=1,p=4", parts[3])
	assert.NotEmpty(t, parts[4], "salt")
	assert.NotEmpty(t, parts[5], "key")

	other, err := HashPassword("supersecret123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ between hashes")
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)

	match, err := VerifyPassword(hash, "correct-horse-battery-staple")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = VerifyPassword(hash, "wrong-password")
	require.NoError(t, err)
	assert.False(t, match)

	_, err = VerifyPassword("not-a-hash", "x")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestVerifyPassword_EdgeCases(t *testing.T) {
	validHash, err := HashPassword("password")
	require.NoError(t, err)
	parts := strings.Split(validHash, "$")

	tests := []struct {
		name string
		hash string
	}{
		{name: "too few parts", hash: "$argon2id$v=19$m=65536,t=1,p=4$salt"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=1,p=4$" + parts[4] + "$" + parts[5]},
		{name: "malformed version", hash: "$argon2id$v=xyz$m=65536,t=1,p=4$salt$hash"},
		{name: "incompatible version", hash: "$argon2id$v=99$m=65536,t=1,p=4$salt$hash"},
		{name: "malformed parameters", hash: "$argon2id$v=19$m=abc,t=1,p=4$" + parts[4] + "$" + parts[5]},
		{name: "invalid salt base64", hash: "$argon2id$v=19$m=65536,t=1,p=4$invalid-salt!$" + parts[5]},
		{name: "invalid hash base64", hash: "$argon2id$v=19$m=65536,t=1,p=4$" + parts[4] + "$invalid-hash!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := VerifyPassword(tt.hash, "password")
			assert.ErrorIs(t, err, ErrInvalidHash)
			assert.False(t, match)
		})
	}
}
