// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

// Package models defines the domain types and wire shapes shared across
// the store, the live channel, and the HTTP API.
package models

import "time"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the externally visible subset of User, returned by search
// and friend listings.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Public strips the private fields from a User.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Name: u.Name}
}

// PositionRecord is the latest known position of one user. Exactly one
// record exists per user; a new report overwrites the previous one.
type PositionRecord struct {
	UserID     string    `json:"user_id"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Accuracy   float64   `json:"accuracy"`
	ObservedAt time.Time `json:"observed_at"`
}

// FriendPosition is a friend's latest position joined with their identity,
// served by the snapshot endpoint with the same field names as the live
// update.
type FriendPosition struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"ts"`
}
