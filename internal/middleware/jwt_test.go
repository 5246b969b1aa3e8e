package myMiddleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(tokenString string) (int, string, error) {
	if tokenString == "good" {
		return 7, "alice", nil
	}
	return 0, "", errors.New("bad token")
}

func TestAuthMiddleware(t *testing.T) {
	am := NewAuthMiddleware(stubValidator{})

	var gotID int
	var gotName string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, name, ok := Identity(r.Context())
		require.True(t, ok)
		gotID, gotName = id, name
	})
	handler := am.Handle(next)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/conversations", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/conversations", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/conversations", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 7, gotID)
		require.Equal(t, "alice", gotName)
	})

	t.Run("query param fallback", func(t *testing.T) {
		// The websocket dialer can't set headers easily, so ?token= works too.
		req := httptest.NewRequest("GET", "/ws?token=good", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
