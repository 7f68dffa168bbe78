// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package ws

import (
	"testing"
)

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	hub := newTestHub(t)
	c := newTestClient(hub, "user-1")

	if got := r.Present("user-1"); len(got) != 0 {
		t.Fatalf("Present before register returned %d connections", len(got))
	}

	r.Register("user-1", c)

	got := r.Present("user-1")
	if len(got) != 1 || got[0] != c {
		t.Fatalf("Present after register = %v, want [c]", got)
	}
	if r.Online() != 1 {
		t.Errorf("Online = %d, want 1", r.Online())
	}
	if r.Connections("user-1") != 1 {
		t.Errorf("Connections = %d, want 1", r.Connections("user-1"))
	}

	if !r.Deregister("user-1", c) {
		t.Error("Deregister of present connection returned false")
	}
	if got := r.Present("user-1"); len(got) != 0 {
		t.Errorf("Present after deregister returned %d connections", len(got))
	}
	if r.Online() != 0 {
		t.Errorf("Online after deregister = %d, want 0 (empty entry must be deleted)", r.Online())
	}
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	hub := newTestHub(t)
	c := newTestClient(hub, "user-1")

	r.Register("user-1", c)
	r.Register("user-1", c)

	if r.Connections("user-1") != 1 {
		t.Errorf("Connections after double register = %d, want 1", r.Connections("user-1"))
	}
}

func TestRegistryDeregisterAbsent(t *testing.T) {
	r := NewRegistry()
	hub := newTestHub(t)
	c := newTestClient(hub, "user-1")

	if r.Deregister("user-1", c) {
		t.Error("Deregister of never-registered connection returned true")
	}

	r.Register("user-1", c)
	if !r.Deregister("user-1", c) {
		t.Error("first Deregister returned false")
	}
	if r.Deregister("user-1", c) {
		t.Error("second Deregister returned true, want no-op")
	}
}

func TestRegistryMultipleConnections(t *testing.T) {
	r := NewRegistry()
	hub := newTestHub(t)
	c1 := newTestClient(hub, "user-1")
	c2 := newTestClient(hub, "user-1")

	r.Register("user-1", c1)
	r.Register("user-1", c2)

	if r.Connections("user-1") != 2 {
		t.Fatalf("Connections = %d, want 2", r.Connections("user-1"))
	}
	if r.Online() != 1 {
		t.Errorf("Online = %d, want 1 (same user)", r.Online())
	}

	r.Deregister("user-1", c1)

	got := r.Present("user-1")
	if len(got) != 1 || got[0] != c2 {
		t.Fatalf("Present after removing one connection = %v, want [c2]", got)
	}
	if r.Online() != 1 {
		t.Errorf("Online = %d, want 1 (user still has a connection)", r.Online())
	}
}

func TestRegistryPresentIsSnapshot(t *testing.T) {
	r := NewRegistry()
	hub := newTestHub(t)
	c1 := newTestClient(hub, "user-1")
	c2 := newTestClient(hub, "user-1")

	r.Register("user-1", c1)
	snapshot := r.Present("user-1")
	r.Register("user-1", c2)

	if len(snapshot) != 1 {
		t.Errorf("snapshot mutated by later register: len = %d, want 1", len(snapshot))
	}
}

func TestRegistryTotalConnections(t *testing.T) {
	r := NewRegistry()
	hub := newTestHub(t)

	r.Register("user-1", newTestClient(hub, "user-1"))
	r.Register("user-1", newTestClient(hub, "user-1"))
	r.Register("user-2", newTestClient(hub, "user-2"))

	if r.TotalConnections() != 3 {
		t.Errorf("TotalConnections = %d, want 3", r.TotalConnections())
	}
	if r.Online() != 2 {
		t.Errorf("Online = %d, want 2", r.Online())
	}
}
