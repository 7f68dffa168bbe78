// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/friendcircle/friendcircle/internal/auth"
	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/metrics"
	"github.com/friendcircle/friendcircle/internal/models"
	"github.com/friendcircle/friendcircle/internal/store"
)

// credentialsMessage is returned for every failed login. Unknown username
// and wrong password are deliberately indistinguishable.
const credentialsMessage = "invalid username or password"

// Register creates a new account and signs the first token.
//
//	POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password, h.config.Auth.BcryptCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create account", err)
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			respondError(w, http.StatusConflict, "CONFLICT", "username is already taken", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to create account", err)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token", err)
		return
	}

	logging.Info().Str("user_id", logging.SanitizeUserID(user.ID)).Msg("account created")
	respondData(w, http.StatusCreated, models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	})
}

// Login verifies credentials and signs a token.
//
//	POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			metrics.AuthFailures.WithLabelValues("http").Inc()
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", credentialsMessage, nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "login failed", err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		metrics.AuthFailures.WithLabelValues("http").Inc()
		logging.Warn().Str("user_id", logging.SanitizeUserID(user.ID)).Msg("login rejected: wrong password")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", credentialsMessage, nil)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token", err)
		return
	}

	logging.Info().Str("user_id", logging.SanitizeUserID(user.ID)).Msg("login succeeded")
	respondData(w, http.StatusOK, models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	})
}

// Logout revokes the presented token. Live connections opened with it stay
// up until they disconnect; new connections with the token are rejected.
//
//	POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := authClaims(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Unauthorized: missing token", nil)
		return
	}

	if err := h.authenticator.Revoke(r.Context(), claims); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to revoke token", err)
		return
	}

	logging.Info().Str("user_id", logging.SanitizeUserID(claims.Subject)).Msg("token revoked")
	respondData(w, http.StatusOK, map[string]string{"message": "logged out"})
}
