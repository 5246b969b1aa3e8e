package user

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-dm/internal/apperr"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewService(nil, nil, "test-secret", time.Hour)

	token, err := s.signToken(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, username, err := s.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, 42, id)
	require.Equal(t, "alice", username)
}

func TestValidateToken_Rejections(t *testing.T) {
	s := NewService(nil, nil, "test-secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService(nil, nil, "other-secret", time.Hour)
		token, err := other.signToken(1, "bob")
		require.NoError(t, err)

		_, _, err = s.ValidateToken(token)
		require.Error(t, err)
		require.True(t, errors.Is(err, apperr.ErrUnauthenticated))
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewService(nil, nil, "test-secret", -time.Hour)
		token, err := expired.signToken(1, "bob")
		require.NoError(t, err)

		_, _, err = s.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := s.ValidateToken("not.a.token")
		require.Error(t, err)
	})
}
