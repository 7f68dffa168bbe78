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

// Health reports overall service health: database connectivity, online
// presence counts and uptime.
//
//	GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.store != nil && h.store.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"status":             status,
		"database_connected": dbConnected,
		"online_users":       h.hub.OnlineUsers(),
		"uptime":             time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the liveness probe: 200 whenever the process is up,
// regardless of dependencies.
//
//	GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe: 200 only when the store answers a
// ping, 503 otherwise.
//
//	GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.store.Ping(r.Context()) != nil {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:    "NOT_READY",
				Message: "database is not reachable",
			},
		})
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"ready": true})
}
