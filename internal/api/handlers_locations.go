// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package api

import (
	"net/http"
	"time"

	"github.com/friendcircle/friendcircle/internal/models"
)

// FriendsLocations returns the latest known position of each of the
// caller's friends. Friends that have never reported are omitted. The
// payload uses the same field names as the live updates, so a client can
// seed its map from this snapshot and then apply the stream.
//
//	GET /api/v1/users/me/friends/locations
func (h *Handler) FriendsLocations(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := requireClaims(w, r)
	if !ok {
		return
	}

	start := time.Now()
	positions, err := h.store.FriendPositions(r.Context(), callerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load friend locations", err)
		return
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   positions,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
