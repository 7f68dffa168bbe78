// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/friendcircle/friendcircle/internal/auth"
	"github.com/friendcircle/friendcircle/internal/middleware"
)

// Router wires handlers, auth middleware and the Chi middleware stack.
type Router struct {
	handler       *Handler
	authMw        *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates the router from the handler's configuration.
func NewRouter(handler *Handler, authMw *auth.Middleware) *Router {
	cfg := DefaultChiMiddlewareConfig()
	if handler.config != nil {
		cfg.CORSAllowedOrigins = handler.config.Security.CORSOrigins
		cfg.RateLimitDisabled = handler.config.Security.RateLimitDisabled
	}

	return &Router{
		handler:       handler,
		authMw:        authMw,
		chiMiddleware: NewChiMiddleware(cfg),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight works

	// Health probes: permissive rate limit for monitoring tools.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitForHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Account endpoints: strict limits against brute force.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitForAuth())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/register", router.handler.Register)
		r.With(router.chiMiddleware.RateLimitForLogin()).Post("/login", router.handler.Login)
		r.With(chiMiddleware(router.authMw.Authenticate)).Post("/logout", router.handler.Logout)
	})

	// User and friend-graph endpoints: authentication required.
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(router.authMw.Authenticate))

		r.Get("/", router.handler.SearchUsers)
		r.Get("/me/friends", router.handler.MyFriends)
		r.Get("/me/friends/locations", router.handler.FriendsLocations)
		r.Post("/{id}/friends", router.handler.AddFriend)
	})

	// Live channel: the upgrade rate is limited here, reports are
	// throttled per connection inside the hub. No metrics wrapper on this
	// route so the upgrader reaches the raw ResponseWriter.
	r.Route("/api/v1/ws", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitForWebSocket())
		r.Use(chiMiddleware(router.authMw.Authenticate))

		r.Get("/", router.handler.WebSocket)
	})

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
