// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/friendcircle/friendcircle/internal/metrics"
	"github.com/friendcircle/friendcircle/internal/models"
)

// UpsertPosition overwrites the user's latest position. The PRIMARY KEY on
// user_id keeps exactly one row per user; concurrent reports from the same
// user resolve to last write wins in arrival order.
func (s *Store) UpsertPosition(ctx context.Context, p *models.PositionRecord) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions(user_id, lat, lng, accuracy, observed_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			lat = excluded.lat,
			lng = excluded.lng,
			accuracy = excluded.accuracy,
			observed_at = excluded.observed_at
	`, p.UserID, p.Latitude, p.Longitude, p.Accuracy, p.ObservedAt.UTC())
	metrics.RecordStoreQuery("upsert_position", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("store: upsert position: %w", err)
	}
	return nil
}

// GetPosition returns the user's latest position, or nil when the user has
// never reported one.
func (s *Store) GetPosition(ctx context.Context, userID string) (*models.PositionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, lat, lng, accuracy, observed_at FROM positions WHERE user_id = ?`, userID)
	var p models.PositionRecord
	if err := row.Scan(&p.UserID, &p.Latitude, &p.Longitude, &p.Accuracy, &p.ObservedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get position: %w", err)
	}
	return &p, nil
}

// FriendPositions returns the latest stored position of each of the user's
// friends, joined with their identity. Friends who never reported are
// omitted.
func (s *Store) FriendPositions(ctx context.Context, userID string) ([]models.FriendPosition, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name, p.lat, p.lng, p.accuracy, p.observed_at
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		JOIN positions p ON p.user_id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY u.username ASC
	`, userID)
	metrics.RecordStoreQuery("friend_positions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("store: friend positions: %w", err)
	}
	defer rows.Close()

	var positions []models.FriendPosition
	for rows.Next() {
		var fp models.FriendPosition
		var observedAt time.Time
		if err := rows.Scan(&fp.UserID, &fp.Username, &fp.Name, &fp.Latitude, &fp.Longitude, &fp.Accuracy, &observedAt); err != nil {
			return nil, fmt.Errorf("store: friend positions scan: %w", err)
		}
		fp.Timestamp = observedAt.UnixMilli()
		positions = append(positions, fp)
	}
	return positions, rows.Err()
}
