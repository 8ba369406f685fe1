package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaio/sika/internal/http/auth"
)

func TestMiddleware(t *testing.T) {
	const secret = "test-secret"

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := auth.Middleware(secret)(ok)

	do := func(t *testing.T, token string) int {
		t.Helper()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec.Code
	}

	t.Run("ValidToken", func(t *testing.T) {
		token, err := auth.OperatorToken(secret, "ops@sika", time.Minute)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, do(t, token))
	})

	t.Run("MissingToken", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(t, ""))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := auth.OperatorToken("other-secret", "ops@sika", time.Minute)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, do(t, token))
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token, err := auth.OperatorToken(secret, "ops@sika", -time.Minute)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, do(t, token))
	})
}
