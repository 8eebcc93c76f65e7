package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.True(t, CheckPassword("secret1", hash))
	assert.False(t, CheckPassword("secret2", hash))
	assert.False(t, CheckPassword("secret1", ""))

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestUserHasPermission(t *testing.T) {
	assert.True(t, UserHasPermission([]string{"USER"}, AIUse))
	assert.False(t, UserHasPermission([]string{"USER"}, JobsRead))
	assert.True(t, UserHasPermission([]string{"USER", "ADMIN"}, JobsRead))
	assert.False(t, UserHasPermission([]string{"viewer"}, AIUse))
	assert.False(t, UserHasPermission(nil, AIUse))
}
