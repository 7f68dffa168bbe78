// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package api

import (
	"net/http"

	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/ws"
)

// WebSocket upgrades an authenticated request to the live location
// channel. The auth middleware has already validated the token (Bearer
// header, token query parameter, or cookie) and rejected revoked ones, so
// a request reaching this handler carries claims; an upgrade failure is
// terminal for the attempt and leaves no registration behind.
//
//	GET /api/v1/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := authClaims(r)
	if !ok || claims.Subject == "" {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Unauthorized: missing token", nil)
		return
	}

	// The display name lives in the store, not the token, and is stamped
	// onto every update this connection fans out.
	user, err := h.store.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Unauthorized: unknown account", err)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		logging.Warn().Err(err).Str("user_id", logging.SanitizeUserID(user.ID)).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, user.ID, user.Username, user.Name)
	h.hub.Register <- client
	client.Start()

	logging.Info().
		Str("user_id", logging.SanitizeUserID(user.ID)).
		Msg("live channel established")
}
