// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/metrics"
)

type contextKey string

// ClaimsContextKey is the request-context key carrying the authenticated
// token claims.
const ClaimsContextKey contextKey = "claims"

// Middleware enforces authentication on HTTP endpoints.
type Middleware struct {
	authenticator *Authenticator
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(authenticator *Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

// Authenticate rejects requests without a valid, unrevoked token and
// stores the claims in the request context for handlers.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractToken(r)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("http").Inc()
			http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
			return
		}

		claims, err := m.authenticator.Authenticate(r.Context(), token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("http").Inc()
			logging.Debug().Err(err).Msg("token validation failed")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// ExtractToken pulls the credential from the Authorization header, the
// "token" query parameter, or the "token" cookie, in that order. The query
// parameter exists for WebSocket clients that cannot set headers.
func ExtractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", fmt.Errorf("invalid authorization header")
		}
		return parts[1], nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", fmt.Errorf("missing token")
}

// ClaimsFromContext retrieves the authenticated claims stored by
// Authenticate. The second return is false when the request never passed
// the middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}
