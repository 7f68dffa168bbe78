// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/metrics"
)

// ErrRevokerClosed indicates the revocation store has been closed.
var ErrRevokerClosed = errors.New("revocation store is closed")

// TokenRevoker tracks revoked token IDs (jti) until their natural expiry.
// After the expiry the entry is irrelevant: the token no longer validates.
type TokenRevoker interface {
	// Revoke marks a jti as revoked for the given TTL.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether a jti has been revoked and is still
	// within its TTL.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// CleanupExpired reclaims storage held by expired entries. Returns
	// the number of entries removed where the backend can count them.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// MemoryRevoker is an in-process TokenRevoker. Revocations do not survive
// a restart; expired tokens stop validating regardless.
type MemoryRevoker struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	closed  bool
}

// NewMemoryRevoker creates an empty in-memory revocation store.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{entries: make(map[string]time.Time)}
}

// Revoke marks a jti as revoked until now+ttl.
func (r *MemoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRevokerClosed
	}
	r.entries[jti] = time.Now().Add(ttl)
	metrics.TokensRevoked.Inc()
	return nil
}

// IsRevoked reports whether the jti is revoked and unexpired.
func (r *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false, ErrRevokerClosed
	}
	expiry, ok := r.entries[jti]
	return ok && time.Now().Before(expiry), nil
}

// CleanupExpired removes entries whose TTL has passed.
func (r *MemoryRevoker) CleanupExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRevokerClosed
	}
	now := time.Now()
	removed := 0
	for jti, expiry := range r.entries {
		if now.After(expiry) {
			delete(r.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// Close marks the store closed.
func (r *MemoryRevoker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.entries = nil
	return nil
}

// BadgerRevoker is a TokenRevoker backed by BadgerDB TTL entries, so
// revocations survive restarts.
type BadgerRevoker struct {
	db     *badger.DB
	prefix []byte

	mu     sync.RWMutex
	closed bool
}

// NewBadgerRevoker opens (or creates) a BadgerDB at dir.
func NewBadgerRevoker(dir string) (*BadgerRevoker, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open revocation store at %s: %w", dir, err)
	}
	return &BadgerRevoker{db: db, prefix: []byte("revoked:")}, nil
}

func (r *BadgerRevoker) makeKey(jti string) []byte {
	return append(append([]byte{}, r.prefix...), []byte(jti)...)
}

// Revoke stores the jti with a TTL; Badger expires the entry on its own.
func (r *BadgerRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrRevokerClosed
	}
	r.mu.RUnlock()

	err := r.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(r.makeKey(jti), []byte{1}).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	metrics.TokensRevoked.Inc()
	return nil
}

// IsRevoked reports whether the jti is present and unexpired.
func (r *BadgerRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false, ErrRevokerClosed
	}
	r.mu.RUnlock()

	var revoked bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(r.makeKey(jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	return revoked, err
}

// CleanupExpired triggers value-log garbage collection. Badger drops
// expired entries during compaction; the GC pass reclaims disk space.
func (r *BadgerRevoker) CleanupExpired(_ context.Context) (int, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return 0, ErrRevokerClosed
	}
	r.mu.RUnlock()

	err := r.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return 0, err
	}
	return 0, nil
}

// Close closes the underlying BadgerDB.
func (r *BadgerRevoker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

// NewRevoker builds the TokenRevoker selected by configuration.
func NewRevoker(backend, path string) (TokenRevoker, error) {
	switch backend {
	case "badger":
		return NewBadgerRevoker(path)
	case "memory", "":
		return NewMemoryRevoker(), nil
	default:
		return nil, fmt.Errorf("unknown revocation backend %q", backend)
	}
}

// StartRevokerSweep runs CleanupExpired on a ticker until ctx is done.
// Blocks; run under the supervisor.
func StartRevokerSweep(ctx context.Context, revoker TokenRevoker, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := revoker.CleanupExpired(ctx)
			if err != nil {
				if errors.Is(err, ErrRevokerClosed) {
					return nil
				}
				logging.Warn().Err(err).Msg("revocation sweep failed")
				continue
			}
			if removed > 0 {
				logging.Debug().Int("removed", removed).Msg("revocation sweep")
			}
		}
	}
}
