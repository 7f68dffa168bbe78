// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/friendcircle/friendcircle/internal/models"
)

// newLiveServer upgrades every request to a WebSocket owned by userID,
// registers it with the hub, and starts its pumps. The returned server is
// the server side of the live channel; tests dial it as the device.
func newLiveServer(t *testing.T, h *Hub, userID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		c := NewClient(h, conn, userID, "u-"+userID, "User "+userID)
		h.Register <- c
		c.Start()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialDevice(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewClientBindsIdentity(t *testing.T) {
	h := newTestHub(t)
	c := NewClient(h, nil, "user-1", "ada", "Ada")

	if c.UserID() != "user-1" {
		t.Errorf("UserID = %q, want user-1", c.UserID())
	}
	if c.username != "ada" || c.name != "Ada" {
		t.Errorf("identity = %q/%q, want ada/Ada", c.username, c.name)
	}
	if cap(c.send) != testWSConfig().SendQueueSize {
		t.Errorf("send queue capacity = %d, want %d", cap(c.send), testWSConfig().SendQueueSize)
	}
	if c.ID() == 0 {
		t.Error("client ID not assigned")
	}
}

func TestReadPumpReportRoundTrip(t *testing.T) {
	store := newFakeStore()
	graph := &fakeGraph{friends: map[string][]string{"u": {"a"}}}
	h := NewHub(store, graph, testWSConfig())
	startHub(t, h)

	friend := newTestClient(h, "a")
	registerClient(t, h, friend)

	srv := newLiveServer(t, h, "u")
	device := dialDevice(t, srv)

	if err := device.WriteMessage(websocket.TextMessage, []byte(`{"lat":12.9,"lng":77.6,"accuracy":4}`)); err != nil {
		t.Fatal(err)
	}

	update, ok := recvUpdate(friend, time.Second)
	if !ok {
		t.Fatal("friend received no update")
	}
	if update.UserID != "u" || update.Latitude != 12.9 || update.Longitude != 77.6 || update.Accuracy != 4 {
		t.Errorf("update = %+v", update)
	}

	waitFor(t, func() bool {
		rec, ok := store.get("u")
		return ok && rec.Latitude == 12.9
	}, "position persisted")
}

func TestReadPumpMalformedPayloadKeepsConnection(t *testing.T) {
	store := newFakeStore()
	graph := &fakeGraph{friends: map[string][]string{"u": {"a"}}}
	h := NewHub(store, graph, testWSConfig())
	startHub(t, h)

	friend := newTestClient(h, "a")
	registerClient(t, h, friend)

	srv := newLiveServer(t, h, "u")
	device := dialDevice(t, srv)

	// Undecodable latitude, then a valid report on the same connection.
	if err := device.WriteMessage(websocket.TextMessage, []byte(`{"lat":"x","lng":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := device.WriteMessage(websocket.TextMessage, []byte(`{"lat":1,"lng":2}`)); err != nil {
		t.Fatal(err)
	}

	update, ok := recvUpdate(friend, time.Second)
	if !ok {
		t.Fatal("valid report after malformed one was not processed")
	}
	if update.Latitude != 1 || update.Longitude != 2 {
		t.Errorf("update = %+v, want the valid report only", update)
	}

	if rec, _ := store.get("u"); rec.Latitude != 1 {
		t.Errorf("stored record = %+v", rec)
	}
}

func TestReadPumpThrottlesReports(t *testing.T) {
	cfg := testWSConfig()
	cfg.ReportsPerSecond = 1
	cfg.ReportBurst = 1
	store := newFakeStore()
	graph := &fakeGraph{friends: map[string][]string{"u": {"a"}}}
	h := NewHub(store, graph, cfg)
	startHub(t, h)

	friend := newTestClient(h, "a")
	registerClient(t, h, friend)

	srv := newLiveServer(t, h, "u")
	device := dialDevice(t, srv)

	for i := 0; i < 5; i++ {
		if err := device.WriteMessage(websocket.TextMessage, []byte(`{"lat":1,"lng":2}`)); err != nil {
			t.Fatal(err)
		}
	}

	if _, ok := recvUpdate(friend, time.Second); !ok {
		t.Fatal("first report not delivered")
	}
	if _, ok := recvUpdate(friend, 200*time.Millisecond); ok {
		t.Error("throttled report was still delivered")
	}

	// The connection survives the throttle.
	waitFor(t, func() bool { return h.registry.Connections("u") == 1 }, "connection still registered")
}

func TestWritePumpDeliversUpdate(t *testing.T) {
	h := newTestHub(t)
	startHub(t, h)

	srv := newLiveServer(t, h, "a")
	device := dialDevice(t, srv)

	waitFor(t, func() bool { return h.registry.Connections("a") == 1 }, "client registered")
	conns := h.registry.Present("a")
	conns[0].send <- models.LocationUpdate{UserID: "u", Latitude: 5, Longitude: 6, Timestamp: 123}

	var update models.LocationUpdate
	if err := device.ReadJSON(&update); err != nil {
		t.Fatalf("device read failed: %v", err)
	}
	if update.UserID != "u" || update.Latitude != 5 || update.Timestamp != 123 {
		t.Errorf("device got %+v", update)
	}
}

func TestDisconnectDeregisters(t *testing.T) {
	h := newTestHub(t)
	startHub(t, h)

	srv := newLiveServer(t, h, "u")
	device := dialDevice(t, srv)

	waitFor(t, func() bool { return h.registry.Connections("u") == 1 }, "client registered")

	_ = device.Close()

	waitFor(t, func() bool { return h.registry.Connections("u") == 0 }, "client deregistered after disconnect")
	if h.OnlineUsers() != 0 {
		t.Errorf("OnlineUsers = %d, want 0", h.OnlineUsers())
	}
}

func TestDeadPeerDetectedWithinPongWait(t *testing.T) {
	cfg := testWSConfig()
	cfg.PongWait = 200 * time.Millisecond
	h := NewHub(newFakeStore(), &fakeGraph{}, cfg)
	startHub(t, h)

	srv := newLiveServer(t, h, "u")
	// Dial and then go silent: the device never reads, so it never answers
	// pings and the read deadline on the server side must fire.
	dialDevice(t, srv)

	waitFor(t, func() bool { return h.registry.Connections("u") == 0 }, "dead peer deregistered")
}
