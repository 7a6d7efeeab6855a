package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast
var testParams = PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestArgon2Hasher(t *testing.T) {
	h := NewArgon2Hasher(testParams)

	encoded, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := h.Verify("hunter22", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("hunter23", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_SaltsDiffer(t *testing.T) {
	h := NewArgon2Hasher(testParams)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_VerifyUsesStoredParams(t *testing.T) {
	encoded, err := NewArgon2Hasher(testParams).Hash("pw")
	require.NoError(t, err)

	other := NewArgon2Hasher(PasswordParams{Memory: 2048, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	ok, err := other.Verify("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2Hasher_Malformed(t *testing.T) {
	h := NewArgon2Hasher(testParams)
	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=1$m=1,t=1,p=1$aa$bb"} {
		_, err := h.Verify("pw", bad)
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(10)
	require.NoError(t, err)
	assert.Len(t, pw, 10)
	for _, c := range pw {
		assert.True(t, strings.ContainsRune(passwordAlphabet, c))
	}
}
