// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestMiddleware(t *testing.T) (*Middleware, *JWTManager, *MemoryRevoker) {
	t.Helper()
	m, err := NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	revoker := NewMemoryRevoker()
	t.Cleanup(func() { revoker.Close() })
	return NewMiddleware(NewAuthenticator(m, revoker)), m, revoker
}

func TestExtractTokenSources(t *testing.T) {
	header := httptest.NewRequest(http.MethodGet, "/", nil)
	header.Header.Set("Authorization", "Bearer tok-header")

	query := httptest.NewRequest(http.MethodGet, "/?token=tok-query", nil)

	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: "token", Value: "tok-cookie"})

	// Header wins over the query parameter when both are present.
	both := httptest.NewRequest(http.MethodGet, "/?token=tok-query", nil)
	both.Header.Set("Authorization", "Bearer tok-header")

	none := httptest.NewRequest(http.MethodGet, "/", nil)

	tests := []struct {
		name    string
		req     *http.Request
		want    string
		wantErr bool
	}{
		{"bearer header", header, "tok-header", false},
		{"query param", query, "tok-query", false},
		{"cookie", cookie, "tok-cookie", false},
		{"header precedence", both, "tok-header", false},
		{"no token", none, "", true},
	}
	for _, tt := range tests {
		got, err := ExtractToken(tt.req)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMiddlewareAuthenticate(t *testing.T) {
	mw, manager, _ := newTestMiddleware(t)

	var gotClaims *Claims
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	// Missing token.
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token status = %d, want 401", rec.Code)
	}

	// Valid token reaches the handler with claims in context.
	token, _, err := manager.GenerateToken(testUser())
	if err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", rec.Code)
	}
	if gotClaims == nil {
		t.Fatal("claims missing from request context")
	}
	if gotClaims.Subject != "user-1" || gotClaims.Username != "ada" {
		t.Errorf("claims = %q/%q, want user-1/ada", gotClaims.Subject, gotClaims.Username)
	}
}

func TestMiddlewareRejectsRevokedToken(t *testing.T) {
	mw, manager, _ := newTestMiddleware(t)

	token, _, err := manager.GenerateToken(testUser())
	if err != nil {
		t.Fatal(err)
	}
	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.authenticator.Revoke(context.Background(), claims); err != nil {
		t.Fatal(err)
	}

	called := false
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("handler invoked for revoked token")
	}
}
