// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package ws

import (
	"sync"
)

// Registry tracks which users are online and the set of live connections
// each of them holds. A user with several devices appears once, with one
// connection per device. The registry itself is safe for concurrent reads;
// mutations flow through the hub loop.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Client]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[*Client]struct{})}
}

// Register adds a connection to the user's live set. Registering the same
// (user, connection) pair twice is a no-op.
func (r *Registry) Register(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[userID] = set
	}
	set[c] = struct{}{}
}

// Deregister removes a connection from the user's live set and reports
// whether it was present. The user's entry is deleted when the last
// connection goes; an empty set is never left behind. Deregistering an
// absent pair is a no-op.
func (r *Registry) Deregister(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
	return true
}

// Present returns a snapshot of the user's live connections. The slice is
// a copy; callers may iterate it while the registry changes. A user with no
// connections yields an empty slice.
func (r *Registry) Present(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Online returns the number of distinct users with at least one live
// connection.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Connections returns the number of live connections the user holds.
func (r *Registry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

// TotalConnections returns the number of live connections across all users.
func (r *Registry) TotalConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}
