package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func serve(mw func(http.Handler) http.Handler, auth string) (*httptest.ResponseRecorder, string) {
	var subject string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, subject
}

func TestJWTMiddlewareDisabledWithoutSecret(t *testing.T) {
	rec, _ := serve(JWTMiddleware(""), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestJWTMiddleware(t *testing.T) {
	secret := "s3cret"
	mw := JWTMiddleware(secret)
	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "analyst",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	rec, subject := serve(mw, "Bearer "+valid)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "analyst", subject)

	rec, _ = serve(mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "x"})
	rec, _ = serve(mw, "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	rec, _ = serve(mw, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	hs512 := sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.RegisteredClaims{Subject: "x"})
	rec, _ = serve(mw, "Bearer "+hs512)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
