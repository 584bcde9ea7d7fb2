package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckKey(t *testing.T) {
	hash, err := HashKey("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckKey(hash, "s3cret"))
	assert.False(t, CheckKey(hash, "guess"))
	assert.False(t, CheckKey("", "s3cret"))

	_, err = HashKey("")
	assert.Error(t, err)
}

func serve(t *testing.T, devMode bool, hash, header string) *httptest.ResponseRecorder {
	t.Helper()
	protected := RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(devMode, hash)(protected)

	req := httptest.NewRequest(http.MethodDelete, "/api/runs/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	hash, err := HashKey("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name    string
		devMode bool
		header  string
		want    int
	}{
		{name: "admin key", header: "Bearer s3cret", want: http.StatusNoContent},
		{name: "anonymous", want: http.StatusForbidden},
		{name: "wrong key", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "dev mode", devMode: true, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt.devMode, hash, tt.header)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAnonymousClaims(t *testing.T) {
	var claims *UserClaims
	h := Middleware(false, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims = GetUser(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/players", nil))

	require.NotNil(t, claims)
	assert.False(t, claims.IsAdmin)
}
