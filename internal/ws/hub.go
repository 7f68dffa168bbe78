// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package ws

import (
	"context"
	"sort"
	"time"

	"github.com/friendcircle/friendcircle/internal/config"
	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/metrics"
	"github.com/friendcircle/friendcircle/internal/models"
	"github.com/friendcircle/friendcircle/internal/validation"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path
	// (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded, which may mean a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// PositionStore persists the latest position per user.
type PositionStore interface {
	UpsertPosition(ctx context.Context, p *models.PositionRecord) error
}

// FriendGraph answers who a user's friends are. The fan-out path only ever
// reads the graph.
type FriendGraph interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// inboundReport is one decoded position report waiting for dispatch,
// tagged with the connection it arrived on and the receipt time used when
// the report carries no timestamp.
type inboundReport struct {
	client     *Client
	report     models.PositionReport
	receivedAt time.Time
}

// Hub owns the presence registry and runs the connection lifecycle and
// fan-out loop. Register/unregister and report dispatch are serialized
// through a single goroutine so registry state is always consistent before
// the next report is processed.
type Hub struct {
	registry *Registry
	store    PositionStore
	friends  FriendGraph
	cfg      config.WebSocketConfig

	Register   chan *Client
	Unregister chan *Client
	reports    chan inboundReport
}

// NewHub creates a hub over the given store and friend graph.
func NewHub(store PositionStore, friends FriendGraph, cfg config.WebSocketConfig) *Hub {
	return &Hub{
		registry:   NewRegistry(),
		store:      store,
		friends:    friends,
		cfg:        cfg,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		reports:    make(chan inboundReport, 256),
	}
}

// Registry exposes presence reads (Present, Online, Connections) to other
// packages. Mutations still flow only through the hub loop.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// OnlineUsers returns the number of distinct users currently connected.
func (h *Hub) OnlineUsers() int {
	return h.registry.Online()
}

// submitReport queues a decoded report for dispatch. Never blocks the
// read pump: when the dispatch queue is full the report is dropped and
// counted, the connection stays open.
func (h *Hub) submitReport(c *Client, report models.PositionReport, receivedAt time.Time) {
	select {
	case h.reports <- inboundReport{client: c, report: report, receivedAt: receivedAt}:
	default:
		metrics.ReportsDropped.WithLabelValues("queue_full").Inc()
		logging.Warn().Str("user_id", logging.SanitizeUserID(c.userID)).Msg("report queue full, dropping position report")
	}
}

// RunWithContext runs the hub loop until the context is canceled. Designed
// for suture supervision: on cancellation all clients are closed and
// ctx.Err() is returned.
//
// Priority order when multiple channels are ready:
//  1. Context cancellation (shutdown)
//  2. Client lifecycle events (Register/Unregister)
//  3. Report dispatch
//
// Lifecycle before dispatch guarantees a deregistered connection never
// receives an update from a report processed after its removal.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check).
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: lifecycle events (non-blocking check).
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
		}

		// Priority 3: dispatch, or block until anything happens.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case rpt := <-h.reports:
			h.dispatchReport(ctx, rpt)
		}
	}
}

func (h *Hub) registerClient(c *Client) {
	h.registry.Register(c.userID, c)
	metrics.WSConnections.Set(float64(h.registry.TotalConnections()))
	metrics.OnlineUsers.Set(float64(h.registry.Online()))
	logging.Info().
		Str("user_id", logging.SanitizeUserID(c.userID)).
		Int("user_connections", h.registry.Connections(c.userID)).
		Int("online_users", h.registry.Online()).
		Msg("websocket client connected")
}

func (h *Hub) unregisterClient(c *Client) {
	// The same connection can reach here twice (read and write pump both
	// tearing down, or a hub-initiated close followed by the pump's own
	// deregistration). Only the removal that actually took effect closes
	// the send queue.
	if !h.registry.Deregister(c.userID, c) {
		return
	}
	close(c.send)
	metrics.WSConnections.Set(float64(h.registry.TotalConnections()))
	metrics.OnlineUsers.Set(float64(h.registry.Online()))
	logging.Info().
		Str("user_id", logging.SanitizeUserID(c.userID)).
		Int("user_connections", h.registry.Connections(c.userID)).
		Int("online_users", h.registry.Online()).
		Msg("websocket client disconnected")
}

// dispatchReport persists one position report and fans the update out to
// every live connection of the reporter's friends.
//
// Failure containment: a malformed report or a storage failure drops the
// report but never closes the connection; a full queue on one recipient
// connection drops the update for that connection only.
func (h *Hub) dispatchReport(ctx context.Context, rpt inboundReport) {
	c := rpt.client

	if verr := validation.ValidateStruct(&rpt.report); verr != nil {
		metrics.ReportsDropped.WithLabelValues("malformed").Inc()
		logging.Debug().
			Str("user_id", logging.SanitizeUserID(c.userID)).
			Str("reason", verr.Error()).
			Msg("dropping invalid position report")
		return
	}

	record := &models.PositionRecord{
		UserID:     c.userID,
		Latitude:   *rpt.report.Latitude,
		Longitude:  *rpt.report.Longitude,
		ObservedAt: rpt.receivedAt,
	}
	if rpt.report.Accuracy != nil {
		record.Accuracy = *rpt.report.Accuracy
	}
	if rpt.report.Timestamp != nil {
		record.ObservedAt = time.UnixMilli(*rpt.report.Timestamp).UTC()
	}

	if err := h.store.UpsertPosition(ctx, record); err != nil {
		metrics.ReportsDropped.WithLabelValues("storage").Inc()
		logging.Error().Err(err).
			Str("user_id", logging.SanitizeUserID(c.userID)).
			Msg("failed to persist position, skipping fan-out")
		return
	}

	friendIDs, err := h.friends.FriendIDs(ctx, c.userID)
	if err != nil {
		logging.Error().Err(err).
			Str("user_id", logging.SanitizeUserID(c.userID)).
			Msg("failed to load friend list, skipping fan-out")
		return
	}

	update := models.LocationUpdate{
		UserID:    c.userID,
		Username:  c.username,
		Name:      c.name,
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
		Accuracy:  record.Accuracy,
		Timestamp: record.ObservedAt.UnixMilli(),
	}

	for _, friendID := range friendIDs {
		for _, conn := range h.registry.Present(friendID) {
			select {
			case conn.send <- update:
				metrics.FanoutDeliveries.Inc()
			default:
				metrics.FanoutDropped.Inc()
				logging.Warn().
					Str("user_id", logging.SanitizeUserID(friendID)).
					Msg("send queue full, dropping location update for connection")
			}
		}
	}
}

// logGracefulShutdown closes all clients and logs the shutdown. Context
// cancellation is expected behavior here, so no error field is logged.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}

	logging.Info().
		Str("component", "ws-hub").
		Str("reason", string(reason)).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

// closeAllClients deregisters and closes every connection, in ID order for
// a consistent shutdown sequence. Returns the number of clients closed.
func (h *Hub) closeAllClients() int {
	var all []*Client
	h.registry.mu.RLock()
	for _, set := range h.registry.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	h.registry.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	for _, c := range all {
		if h.registry.Deregister(c.userID, c) {
			close(c.send)
		}
	}
	metrics.WSConnections.Set(0)
	metrics.OnlineUsers.Set(0)
	return len(all)
}
