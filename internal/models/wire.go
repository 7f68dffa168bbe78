// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package models

// PositionReport is the inbound message a client sends over the live
// channel. Accuracy and Timestamp are optional; missing values default to
// 0 and the server's receipt time.
//
//	{"lat": 12.9, "lng": 77.6, "accuracy": 5, "ts": 1700000000000}
type PositionReport struct {
	Latitude  *float64 `json:"lat" validate:"required,latitude"`
	Longitude *float64 `json:"lng" validate:"required,longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Timestamp *int64   `json:"ts,omitempty"`
}

// LocationUpdate is the outbound message pushed to each live connection of
// the reporter's friends. Timestamp is epoch milliseconds.
//
//	{"userId": "...", "username": "ada", "name": "Ada", "lat": 12.9, ...}
type LocationUpdate struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"ts"`
}
