// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package services

import (
	"context"
	"time"

	"github.com/friendcircle/friendcircle/internal/auth"
)

// RevokerSweepService periodically evicts expired entries from the token
// revocation store.
type RevokerSweepService struct {
	revoker  auth.TokenRevoker
	interval time.Duration
	name     string
}

// NewRevokerSweepService creates the sweep service. A non-positive
// interval falls back to the sweep's default.
func NewRevokerSweepService(revoker auth.TokenRevoker, interval time.Duration) *RevokerSweepService {
	return &RevokerSweepService{
		revoker:  revoker,
		interval: interval,
		name:     "revoker-sweep",
	}
}

// Serve implements suture.Service.
func (s *RevokerSweepService) Serve(ctx context.Context) error {
	return auth.StartRevokerSweep(ctx, s.revoker, s.interval)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *RevokerSweepService) String() string {
	return s.name
}
