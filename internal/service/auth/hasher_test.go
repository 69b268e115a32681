package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := BcryptHasher{}

	t.Run("hash and compare", func(t *testing.T) {
		hash, err := hasher.Hash("password123")

		require.NoError(t, err)
		require.NotEqual(t, "password123", hash)
		require.NoError(t, hasher.Compare(hash, "password123"))
	})

	t.Run("wrong password", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)

		require.Error(t, hasher.Compare(hash, "wrong-password"))
	})

	t.Run("long passwords are fine", func(t *testing.T) {
		// bcrypt alone truncates input at 72 bytes, the sha256 pre-hash must not
		long := strings.Repeat("a", 100)
		longer := long + "b"

		hash, err := hasher.Hash(long)
		require.NoError(t, err)

		require.NoError(t, hasher.Compare(hash, long))
		require.Error(t, hasher.Compare(hash, longer))
	})

	t.Run("same password different hashes", func(t *testing.T) {
		first, err := hasher.Hash("password123")
		require.NoError(t, err)
		second, err := hasher.Hash("password123")
		require.NoError(t, err)

		require.NotEqual(t, first, second, "bcrypt salts every hash")
	})
}
