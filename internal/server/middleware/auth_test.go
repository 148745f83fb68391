package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authProbe(apiKey string, decorate func(*http.Request)) int {
	var hit bool
	h := Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest("GET", "/api/bridge/status", nil)
	if decorate != nil {
		decorate(r)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if hit && w.Code != http.StatusNoContent {
		return -1
	}
	return w.Code
}

func TestAuthDisabledWhenKeyEmpty(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, authProbe("", nil))
}

func TestAuthMissingToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, authProbe("secret", nil))
}

func TestAuthBearerToken(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, authProbe("secret", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer secret")
	}))
	assert.Equal(t, http.StatusUnauthorized, authProbe("secret", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong")
	}))
}

func TestAuthAPIKeyHeader(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, authProbe("secret", func(r *http.Request) {
		r.Header.Set("X-API-Key", "secret")
	}))
	assert.Equal(t, http.StatusUnauthorized, authProbe("secret", func(r *http.Request) {
		r.Header.Set("X-API-Key", "wrong")
	}))
}
