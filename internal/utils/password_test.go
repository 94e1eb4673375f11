package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("senha123", 4) // minimum cost keeps the test fast
	require.NoError(t, err)
	assert.NotEqual(t, "senha123", hash)

	assert.True(t, VerifyPassword(hash, "senha123"))
	assert.False(t, VerifyPassword(hash, "senha124"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "senha123"))
}
