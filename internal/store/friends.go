// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/friendcircle/friendcircle/internal/metrics"
	"github.com/friendcircle/friendcircle/internal/models"
)

// AddFriendship inserts symmetric adjacency rows for the pair in one
// transaction. Idempotent: befriending an existing friend is a no-op.
func (s *Store) AddFriendship(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return ErrSelfFriend
	}
	// The friend row must exist; foreign keys alone would surface an
	// opaque constraint error.
	if _, err := s.GetUserByID(ctx, friendID); err != nil {
		return err
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin add friendship: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO friendships(user_id, friend_id) VALUES(?, ?)`, userID, friendID); err != nil {
		return fmt.Errorf("store: add friendship: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO friendships(user_id, friend_id) VALUES(?, ?)`, friendID, userID); err != nil {
		return fmt.Errorf("store: add friendship reverse: %w", err)
	}
	err = tx.Commit()
	metrics.RecordStoreQuery("add_friendship", time.Since(start), err)
	return err
}

// FriendIDs returns the IDs of the user's friends. The fan-out path calls
// this on every report so friend-list changes apply immediately.
func (s *Store) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = ?`, userID)
	metrics.RecordStoreQuery("friend_ids", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("store: friend ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: friend ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFriends returns the user's friends ordered by username.
func (s *Store) ListFriends(ctx context.Context, userID string) ([]models.PublicUser, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY u.username ASC
	`, userID)
	metrics.RecordStoreQuery("list_friends", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("store: list friends: %w", err)
	}
	defer rows.Close()

	var friends []models.PublicUser
	for rows.Next() {
		var f models.PublicUser
		if err := rows.Scan(&f.ID, &f.Username, &f.Name); err != nil {
			return nil, fmt.Errorf("store: list friends scan: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// AreFriends reports whether friendID is in userID's adjacency set.
func (s *Store) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM friendships WHERE user_id = ? AND friend_id = ?`,
		userID, friendID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: are friends: %w", err)
	}
	return count > 0, nil
}
