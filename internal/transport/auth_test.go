package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lancerkit/esign/internal/config"
)

func authFixture() (http.Handler, config.IdentityConfig, []byte) {
	cfg := config.IdentityConfig{
		Issuer: "https://id.example.com", Audience: "esign", AdminRole: "contracts:admin",
	}
	secret := []byte("auth-test-secret")
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Actor", ActorFrom(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	return AdminAuth(cfg, secret)(handler), cfg, secret
}

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   "https://id.example.com",
		"aud":   "esign",
		"sub":   "admin-1",
		"email": "admin@acme.example",
		"roles": []any{"contracts:admin"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestAdminAuth(t *testing.T) {
	handler, _, secret := authFixture()

	cases := []struct {
		name   string
		bearer func(t *testing.T) string
		want   int
	}{
		{"valid token", func(t *testing.T) string {
			return signToken(t, secret, validClaims())
		}, http.StatusOK},
		{"missing token", func(*testing.T) string { return "" }, http.StatusUnauthorized},
		{"wrong secret", func(t *testing.T) string {
			return signToken(t, []byte("other"), validClaims())
		}, http.StatusUnauthorized},
		{"expired token", func(t *testing.T) string {
			c := validClaims()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return signToken(t, secret, c)
		}, http.StatusUnauthorized},
		{"no expiry", func(t *testing.T) string {
			c := validClaims()
			delete(c, "exp")
			return signToken(t, secret, c)
		}, http.StatusUnauthorized},
		{"wrong issuer", func(t *testing.T) string {
			c := validClaims()
			c["iss"] = "https://evil.example.com"
			return signToken(t, secret, c)
		}, http.StatusUnauthorized},
		{"missing admin role", func(t *testing.T) string {
			c := validClaims()
			c["roles"] = []any{"viewer"}
			return signToken(t, secret, c)
		}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/contracts/c-1/send", nil)
			if b := tc.bearer(t); b != "" {
				r.Header.Set("Authorization", "Bearer "+b)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAdminAuth_actorAttribution(t *testing.T) {
	handler, _, secret := authFixture()
	r := httptest.NewRequest(http.MethodPost, "/api/contracts/c-1/send", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, secret, validClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if got := rec.Header().Get("X-Actor"); got != "admin@acme.example" {
		t.Errorf("actor = %q", got)
	}
}
