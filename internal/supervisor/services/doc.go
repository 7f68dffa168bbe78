// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

// Package services adapts long-running components (HTTP server, live
// channel hub, revocation sweeper) to the suture.Service interface.
package services
