package admission_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaio/sika/internal/admission"
)

type stubChecker struct {
	blocked bool
	tor     bool
	err     error
}

func (s stubChecker) IsBlockedCountry(context.Context, string) (bool, error) {
	return s.blocked, s.err
}

func (s stubChecker) IsTorExit(context.Context, string) (bool, error) {
	return s.tor, s.err
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := map[string]struct {
		checker    admission.Checker
		wantStatus int
	}{
		"Admitted":          {stubChecker{}, http.StatusNoContent},
		"BlockedCountry":    {stubChecker{blocked: true}, http.StatusForbidden},
		"TorExit":           {stubChecker{tor: true}, http.StatusForbidden},
		"LookupFailureOpen": {stubChecker{err: errors.New("timeout")}, http.StatusNoContent},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			handler := admission.Middleware(tc.checker)(ok)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.7:51000"

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestClientLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/lookup", r.URL.Path)
		require.Equal(t, "203.0.113.7", r.URL.Query().Get("ip"))
		require.Equal(t, "Bearer rep-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"country_blocked": true, "tor_exit": false}`))
	}))
	defer srv.Close()

	client := admission.NewClient(srv.URL, "rep-token")

	blocked, err := client.IsBlockedCountry(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, blocked)

	tor, err := client.IsTorExit(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, tor)
}
