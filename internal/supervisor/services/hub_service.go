// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package services

import (
	"context"
)

// ContextHub matches ws.Hub's RunWithContext method without importing the
// ws package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the live-channel hub as a supervised service. The hub's
// RunWithContext already follows the suture.Service pattern, so this only
// adds a name for logging.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService creates the hub service wrapper.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "ws-hub",
	}
}

// Serve implements suture.Service; it returns ctx.Err() on normal
// shutdown after the hub has closed all connections.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *HubService) String() string {
	return s.name
}
