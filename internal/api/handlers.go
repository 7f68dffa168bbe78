// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/friendcircle/friendcircle/internal/auth"
	"github.com/friendcircle/friendcircle/internal/config"
	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/store"
	"github.com/friendcircle/friendcircle/internal/ws"
)

// Handler contains dependencies for API handlers.
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, WebSocket origin checks (this file)
//   - handlers_helpers.go: shared response/validation helpers
//   - handlers_auth.go: register, login, logout
//   - handlers_users.go: user search and friend graph endpoints
//   - handlers_locations.go: friends position snapshot
//   - handlers_ws.go: live channel upgrade
//   - handlers_health.go: liveness and readiness
type Handler struct {
	store         *store.Store
	hub           *ws.Hub
	config        *config.Config
	jwtManager    *auth.JWTManager
	authenticator *auth.Authenticator
	startTime     time.Time
}

// NewHandler creates the API handler with all required dependencies.
func NewHandler(st *store.Store, hub *ws.Hub, cfg *config.Config, jwtManager *auth.JWTManager, authenticator *auth.Authenticator) *Handler {
	return &Handler{
		store:         st,
		hub:           hub,
		config:        cfg,
		jwtManager:    jwtManager,
		authenticator: authenticator,
		startTime:     time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// authClaims returns the JWT claims the auth middleware stored on the
// request, if any.
func authClaims(r *http.Request) (*auth.Claims, bool) {
	return auth.ClaimsFromContext(r.Context())
}

// checkWebSocketOrigin validates WebSocket connection origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Legitimate browser WebSockets always include Origin; only non-browser
	// clients (curl, mobile apps) omit it. Allowing empty Origin would
	// bypass CORS entirely.
	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", logging.SanitizeValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}
