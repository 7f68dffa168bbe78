// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/store"
)

// SearchUsers finds accounts by username prefix, excluding the caller.
//
//	GET /api/v1/users?q=<prefix>
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := requireClaims(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "query parameter q is required", nil)
		return
	}

	limit := getIntParam(r, "limit", 20)
	if limit > 50 {
		limit = 50
	}

	users, err := h.store.SearchUsers(r.Context(), callerID, query, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "search failed", err)
		return
	}

	respondData(w, http.StatusOK, users)
}

// AddFriend creates a symmetric friendship between the caller and the
// target user. Adding an existing friend is a no-op.
//
//	POST /api/v1/users/{id}/friends
func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := requireClaims(w, r)
	if !ok {
		return
	}

	friendID := chi.URLParam(r, "id")
	if friendID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "friend id is required", nil)
		return
	}

	err := h.store.AddFriendship(r.Context(), callerID, friendID)
	switch {
	case errors.Is(err, store.ErrSelfFriend):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cannot add yourself as a friend", nil)
		return
	case errors.Is(err, store.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to add friend", err)
		return
	}

	logging.Info().
		Str("user_id", logging.SanitizeUserID(callerID)).
		Str("friend_id", logging.SanitizeUserID(friendID)).
		Msg("friendship added")
	respondData(w, http.StatusOK, map[string]string{"message": "friend added"})
}

// MyFriends lists the caller's friends.
//
//	GET /api/v1/users/me/friends
func (h *Handler) MyFriends(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := requireClaims(w, r)
	if !ok {
		return
	}

	friends, err := h.store.ListFriends(r.Context(), callerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list friends", err)
		return
	}

	respondData(w, http.StatusOK, friends)
}
