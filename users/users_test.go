package users_test

import (
	"testing"

	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, users.ValidatePasswordStrength("Password123"))
	})

	t.Run("too short", func(t *testing.T) {
		err := users.ValidatePasswordStrength("Pa1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "at least 8 characters")
	})

	t.Run("missing uppercase", func(t *testing.T) {
		err := users.ValidatePasswordStrength("password123")
		require.Error(t, err)
		require.Contains(t, err.Error(), "uppercase")
	})

	t.Run("missing number", func(t *testing.T) {
		err := users.ValidatePasswordStrength("PasswordOnly")
		require.Error(t, err)
		require.Contains(t, err.Error(), "number")
	})
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Password123")
	require.NoError(t, err)
	require.NotEqual(t, "Password123", hash)
	require.True(t, users.CheckPasswordHash("Password123", hash))
	require.False(t, users.CheckPasswordHash("password123", hash))
}
