package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_NeverStoresCleartext(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("daman@123")
	require.NoError(t, err)

	assert.NotEqual(t, "daman@123", hash)
	assert.NotContains(t, hash, "daman@123")
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
}

func TestHashPassword_SaltIsPerRecord(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("eva@123")
	require.NoError(t, err)
	second, err := HashPassword("eva@123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("august@123")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "august@123"))
	assert.False(t, VerifyPassword(hash, "august@124"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, VerifyPassword("not-a-hash", "whatever"))
	assert.False(t, VerifyPassword("$argon2id$v=19$broken", "whatever"))
}
