// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

// Package supervisor builds the suture supervision tree: a root
// supervisor with data, messaging and api child layers so a crashing
// component restarts without taking down its siblings.
package supervisor
