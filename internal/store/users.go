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

// CreateUser inserts a new user. Returns ErrUsernameTaken on a duplicate
// username (case-insensitive).
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, username, name, password_hash, created_at) VALUES(?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, []byte(u.PasswordHash), u.CreatedAt.UTC())
	metrics.RecordStoreQuery("create_user", time.Since(start), err)
	if err != nil {
		if isConstraintError(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// GetUserByUsername fetches a user by username. Returns ErrUserNotFound
// when no row matches.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, name, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key. Returns ErrUserNotFound when
// no row matches.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, name, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// SearchUsers returns users whose username starts with the query, excluding
// the caller, capped at limit.
func (s *Store) SearchUsers(ctx context.Context, callerID, query string, limit int) ([]models.PublicUser, error) {
	if limit <= 0 {
		limit = 20
	}
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, name
		FROM users
		WHERE username LIKE ? ESCAPE '\' AND id != ?
		ORDER BY username ASC
		LIMIT ?
	`, escapeLike(query)+"%", callerID, limit)
	metrics.RecordStoreQuery("search_users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("store: search users: %w", err)
	}
	defer rows.Close()

	var users []models.PublicUser
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Name); err != nil {
			return nil, fmt.Errorf("store: search users scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var hash []byte
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &hash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: scan user: %w", err)
	}
	u.PasswordHash = string(hash)
	return &u, nil
}

// escapeLike escapes LIKE metacharacters in user-supplied search input.
func escapeLike(q string) string {
	out := make([]byte, 0, len(q))
	for i := 0; i < len(q); i++ {
		switch q[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, q[i])
	}
	return string(out)
}
