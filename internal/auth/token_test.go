package auth_test

import (
	"testing"
	"time"

	"achievement-service/internal/auth"
	"achievement-service/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	issuer, err := auth.NewTokenIssuer("test-secret-key-for-testing", "achievement-service", 15*time.Minute)
	require.NoError(t, err)

	u := &user.User{ID: 42, Role: user.RoleFaculty}

	t.Run("RoundTrip", func(t *testing.T) {
		token, expiresAt, err := issuer.Issue(u, time.Now())
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

		claims, err := issuer.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "faculty", claims.Role)
	})

	t.Run("Expired", func(t *testing.T) {
		token, _, err := issuer.Issue(u, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := auth.NewTokenIssuer("another-secret", "achievement-service", time.Minute)
		require.NoError(t, err)
		token, _, err := other.Issue(u, time.Now())
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("EmptySecretRejected", func(t *testing.T) {
		_, err := auth.NewTokenIssuer("", "x", time.Minute)
		assert.Error(t, err)
	})
}
