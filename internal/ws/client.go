// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/metrics"
	"github.com/friendcircle/friendcircle/internal/models"
)

// clientIDCounter generates unique, monotonically increasing IDs so
// connections can be ordered deterministically.
var clientIDCounter atomic.Uint64

// Client is one authenticated WebSocket connection. The owning user's
// identity is bound at creation, after the token has been validated, and
// never changes for the connection's lifetime. A user with several devices
// holds several Clients.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn

	userID   string
	username string
	name     string

	send    chan models.LocationUpdate
	limiter *rate.Limiter

	deregOnce sync.Once
}

// NewClient binds an upgraded connection to an authenticated identity.
// The caller still has to push the client through hub.Register and call
// Start.
func NewClient(hub *Hub, conn *websocket.Conn, userID, username, name string) *Client {
	cfg := hub.cfg
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		userID:   userID,
		username: username,
		name:     name,
		send:     make(chan models.LocationUpdate, cfg.SendQueueSize),
		limiter:  rate.NewLimiter(rate.Limit(cfg.ReportsPerSecond), cfg.ReportBurst),
	}
}

// ID returns the client's unique identifier for deterministic ordering.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the identity bound to this connection.
func (c *Client) UserID() string {
	return c.userID
}

// deregister hands the client to the hub for removal. Exactly once across
// all exit paths: read error, write error, ping timeout, shutdown.
func (c *Client) deregister() {
	c.deregOnce.Do(func() {
		c.hub.Unregister <- c
	})
}

// readPump pumps position reports from the connection to the hub. One
// goroutine per connection; the read deadline doubles as the liveness
// check, reset by each pong.
func (c *Client) readPump() {
	defer func() {
		c.deregister()
		_ = c.conn.Close()
	}()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.ReadLimit)
	if err := c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("user_id", logging.SanitizeUserID(c.userID)).Msg("unexpected websocket close")
			}
			return
		}

		var report models.PositionReport
		if err := json.Unmarshal(data, &report); err != nil {
			// Malformed input never tears down the connection.
			metrics.ReportsDropped.WithLabelValues("malformed").Inc()
			logging.Debug().Err(err).Str("user_id", logging.SanitizeUserID(c.userID)).Msg("dropping undecodable report")
			continue
		}

		if !c.limiter.Allow() {
			metrics.ReportsDropped.WithLabelValues("throttled").Inc()
			continue
		}

		metrics.ReportsReceived.Inc()
		c.hub.submitReport(c, report, time.Now().UTC())
	}
}

// writePump pumps location updates from the send queue to the connection
// and keeps the peer alive with periodic pings. One goroutine per
// connection; all writes happen here.
func (c *Client) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		c.deregister()
		_ = c.conn.Close()
	}()

	for {
		select {
		case update, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the queue.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(update); err != nil {
				logging.Debug().Err(err).Str("user_id", logging.SanitizeUserID(c.userID)).Msg("failed to write location update")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
