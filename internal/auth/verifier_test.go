package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := auth.NewVerifier("secret", "pharmacy-auth", nil)
	token, err := v.Issue(auth.Principal{UserID: 7, Role: "Cashier"}, time.Minute)
	require.NoError(t, err)

	p, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, "cashier", p.Role)
}

func TestVerifierRejectsForeignSignature(t *testing.T) {
	other := auth.NewVerifier("other", "pharmacy-auth", nil)
	token, err := other.Issue(auth.Principal{UserID: 7, Role: "admin"}, time.Minute)
	require.NoError(t, err)

	_, err = auth.NewVerifier("secret", "pharmacy-auth", nil).Parse(token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifierRejectsWrongIssuerAndExpired(t *testing.T) {
	v := auth.NewVerifier("secret", "pharmacy-auth", nil)
	expired, err := v.Issue(auth.Principal{UserID: 1, Role: "admin"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Parse(expired)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "admin", "iss": "someone-else", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Parse(foreign)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	v := auth.NewVerifier("secret", "", nil)
	token, err := v.Issue(auth.Principal{UserID: 3, Role: "pharmacist"}, time.Minute)
	require.NoError(t, err)

	var seen auth.Principal
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(3), seen.UserID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
