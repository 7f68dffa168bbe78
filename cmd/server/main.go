// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

// Package main is the entry point for the FriendCircle server.
//
// FriendCircle is a self-hosted live location sharing service. Friends
// connect over authenticated WebSockets, report their position, and see
// each other move in real time. Positions are fanned out only within the
// reporter's friend graph and the latest position per user is persisted
// for snapshot queries.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Storage: SQLite database holding users, friendships, and latest positions
//  3. Authentication: JWT manager, token revocation store, bcrypt credentials
//  4. WebSocket Hub: presence registry and friend-scoped location fan-out
//  5. HTTP Server: REST API (register, login, friends, snapshots) plus /ws upgrade
//
// All long-running components run under a suture supervisor tree so a
// crashing service is restarted with backoff instead of taking the
// process down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, then a config file
// (config.yaml), then built-in defaults. Common variables:
//
//	HTTP_PORT          Port to listen on (default 8443)
//	JWT_SECRET         32+ character secret for token signing (required)
//	SQLITE_PATH        Database file path (default friendcircle.db)
//	REVOCATION_STORE   Token revocation backend: memory or badger
//	CORS_ORIGINS       Comma-separated allowed origins for browsers
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, closes every live WebSocket session, waits
// for in-flight requests, and closes the database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/friendcircle/friendcircle/internal/api"
	"github.com/friendcircle/friendcircle/internal/auth"
	"github.com/friendcircle/friendcircle/internal/config"
	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/store"
	"github.com/friendcircle/friendcircle/internal/supervisor"
	"github.com/friendcircle/friendcircle/internal/supervisor/services"
	"github.com/friendcircle/friendcircle/internal/ws"
)

// revokerSweepInterval controls how often expired revocation entries are
// purged. Entries expire with the token TTL, so this only bounds memory,
// not correctness.
const revokerSweepInterval = 10 * time.Minute

// httpShutdownTimeout bounds how long in-flight requests may run after a
// shutdown signal.
const httpShutdownTimeout = 10 * time.Second

func main() {
	// === CONFIGURATION ===

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting FriendCircle server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === STORAGE ===

	st, err := store.New(cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := st.Migrate(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("Database ready")

	// === AUTHENTICATION ===

	revoker, err := auth.NewRevoker(cfg.Auth.RevocationStore, cfg.Auth.RevocationPath)
	if err != nil {
		logging.Fatal().Err(err).Str("backend", cfg.Auth.RevocationStore).Msg("Failed to initialize revocation store")
	}
	defer func() {
		if err := revoker.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close revocation store")
		}
	}()

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authenticator := auth.NewAuthenticator(jwtManager, revoker)
	logging.Info().
		Str("revocation_store", cfg.Auth.RevocationStore).
		Dur("token_ttl", cfg.Auth.TokenTTL).
		Msg("Authentication initialized")

	// === WEBSOCKET HUB ===

	// The store serves as both the position sink and the friend graph.
	hub := ws.NewHub(st, st, cfg.WebSocket)

	// === HTTP SERVER ===

	handler := api.NewHandler(st, hub, cfg, jwtManager, authenticator)
	router := api.NewRouter(handler, auth.NewMiddleware(authenticator))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewRevokerSweepService(revoker, revokerSweepInterval))
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Server stopped gracefully")
}
