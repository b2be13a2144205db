package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

func signTestToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://aud",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
}

func TestBearerTokenFromStringSuccess(t *testing.T) {
	token, err := bearerTokenFromString("  Bearer header.payload.signature ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(token) != "header.payload.signature" {
		t.Fatalf("unexpected token content: %s", string(token))
	}
}

func TestBearerTokenFromStringMissing(t *testing.T) {
	if _, err := bearerTokenFromString("   "); err == nil || err.Error() != "missing authorization header" {
		t.Fatalf("expected missing header error, got %v", err)
	}
}

func TestBearerTokenFromStringWrongScheme(t *testing.T) {
	if _, err := bearerTokenFromString("Basic a.b.c"); err == nil || err.Error() != "bad auth header" {
		t.Fatalf("expected bad auth header error, got %v", err)
	}
}

func TestBearerTokenFromStringManyPeriods(t *testing.T) {
	header := "Bearer " + strings.Repeat(".", 1000)
	if _, err := bearerTokenFromString(header); err == nil || err.Error() != "bad auth header" {
		t.Fatalf("expected bad auth header error, got %v", err)
	}
}

func TestUserIDFromBearerHS256(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewSharedSecretAuth(secret, "api://aud", "https://issuer/")

	userID, err := auth.UserIDFromAuthHeader("Bearer " + signTestToken(t, secret, validClaims()))
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestUserIDFromBearerRejectsInvalidClaims(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewSharedSecretAuth(secret, "api://aud", "https://issuer/")

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		secret []byte
	}{
		{name: "expired", mutate: func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-5 * time.Minute).Unix() }},
		{name: "audience", mutate: func(c jwt.MapClaims) { c["aud"] = "api://other" }},
		{name: "issuer", mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil/" }},
		{name: "missingSub", mutate: func(c jwt.MapClaims) { delete(c, "sub") }},
		{name: "wrongSecret", mutate: func(jwt.MapClaims) {}, secret: []byte("other")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			tt.mutate(claims)
			key := secret
			if tt.secret != nil {
				key = tt.secret
			}
			if _, err := auth.UserIDFromAuthHeader("Bearer " + signTestToken(t, key, claims)); err == nil {
				t.Fatalf("expected token to be rejected")
			}
		})
	}
}

func TestJWKSAuthWithoutKeySetFails(t *testing.T) {
	auth := NewAuth(nil, "", "", DefaultJWKSCacheTTL)
	// The key lookup fails before the signature is checked.
	raw := "Bearer eyJhbGciOiJSUzI1NiIsImtpZCI6ImsxIn0.eyJzdWIiOiJ1In0.c2ln"
	if _, err := auth.UserIDFromAuthHeader(raw); err == nil {
		t.Fatalf("expected error without jwks")
	}
}

func TestRequireUserAcceptsQueryToken(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewSharedSecretAuth(secret, "", "")
	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		return c.String(http.StatusOK, userFrom(c))
	}, requireUser(auth))

	req := httptest.NewRequest(http.MethodGet, "/x?token="+signTestToken(t, secret, validClaims()), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user-123" {
		t.Fatalf("unexpected user: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}
}

func TestAnonymousAuth(t *testing.T) {
	id, err := Anonymous{}.UserIDFromAuthHeader("")
	if err != nil || id != AnonymousUser {
		t.Fatalf("anonymous = %q, %v", id, err)
	}
}
