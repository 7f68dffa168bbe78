// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

// Package ws implements the live-location channel: a presence registry of
// authenticated WebSocket connections, per-connection read/write pumps with
// heartbeat liveness, and the hub loop that persists each position report
// and fans it out to the reporter's friends.
//
// One user may hold several connections (several devices). Each inbound
// report updates the single stored position for that user and is pushed to
// every live connection of every friend. Delivery is best effort: a slow
// recipient's full queue drops the update for that recipient only.
//
// The hub is designed to run under suture supervision via RunWithContext;
// cancellation closes all connections and returns.
package ws
