package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pos/internal/common"
)

var testSecret = []byte("test-secret")

func signedToken(t *testing.T, now time.Time, mutate func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer("pos").
		Audience([]string{"pos-admin"}).
		Subject("staff-1").
		IssuedAt(now).
		Expiration(now.Add(time.Minute))
	if mutate != nil {
		builder = mutate(builder)
	}
	tok, err := builder.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func newMiddleware(now time.Time) Middleware {
	return Middleware{
		Secret:    testSecret,
		Validator: TokenValidator{Issuer: "pos", Audience: "pos-admin", Algorithm: jwa.HS256, ClockSkew: time.Second},
		Now:       func() time.Time { return now },
	}
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	now := time.Now()
	var gotUserID string
	handler := newMiddleware(now).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, now, nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "staff-1" {
		t.Fatalf("user id = %q, want staff-1", gotUserID)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	handler := newMiddleware(time.Now()).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	handler := newMiddleware(now).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	expired := signedToken(t, now, func(b *jwt.Builder) *jwt.Builder {
		return b.IssuedAt(now.Add(-2 * time.Hour)).Expiration(now.Add(-time.Hour))
	})
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRejectsWrongIssuer(t *testing.T) {
	now := time.Now()
	handler := newMiddleware(now).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	wrongIssuer := signedToken(t, now, func(b *jwt.Builder) *jwt.Builder {
		return b.Issuer("someone-else")
	})
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+wrongIssuer)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
