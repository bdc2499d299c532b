package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartSession(t *testing.T) {
	var seen string
	h := CartSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = cartSessionFrom(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"kept", "abc-123", true},
		{"issued when missing", "", false},
		{"issued when too long", strings.Repeat("x", maxSessionIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(CartSessionHeader, tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(CartSessionHeader))
			if tt.keep {
				assert.Equal(t, tt.header, seen)
			} else {
				assert.Len(t, seen, 36)
			}
		})
	}
}

func TestOptionalIdentity(t *testing.T) {
	var (
		id Identity
		ok bool
	)
	h := OptionalIdentity(testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok = identityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+signToken(t, testJWTSecret, "user-7", "seven@example.com"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: "user-7", Email: "seven@example.com"}, id)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalIdentity_NoSecretIgnoresTokens(t *testing.T) {
	called := false
	h := OptionalIdentity("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := identityFrom(r.Context())
		assert.False(t, ok)
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestRequireAdmin_EmptyTokenLocksOut(t *testing.T) {
	h := RequireAdmin("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLimitBody(t *testing.T) {
	h := LimitBody(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]string
		if decodeJSON(w, r, &v) {
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"k":"`+strings.Repeat("v", 64)+`"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
