// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

// Package auth provides JWT issuance and validation, password hashing, and
// token revocation. A token authenticates both plain HTTP requests and the
// live channel at connection establishment; the identity it carries is
// bound to the connection for its entire lifetime.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/friendcircle/friendcircle/internal/models"
)

// Sentinel errors surfaced to callers.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims are the JWT claims carried by an access token. Subject is the
// user ID; ID (jti) identifies the token for revocation.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates HS256-signed access tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager returns a manager signing with the given secret. The
// secret must not be empty; config validation enforces the minimum length
// in production.
func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required but was empty")
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateToken creates a signed token for the user. The token carries the
// user ID as subject, the username as a custom claim, and a unique jti so
// logout can revoke it before its natural expiry.
func (m *JWTManager) GenerateToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature, expiry, and not-before, and extracts the
// claims. The signing-method check rejects algorithm confusion attempts.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Authenticator validates tokens and rejects revoked ones. It is the
// single validation path shared by the HTTP middleware and the live
// channel's connection establishment.
type Authenticator struct {
	manager *JWTManager
	revoker TokenRevoker
}

// NewAuthenticator combines a JWT manager with a revocation store.
func NewAuthenticator(manager *JWTManager, revoker TokenRevoker) *Authenticator {
	return &Authenticator{manager: manager, revoker: revoker}
}

// Authenticate validates the token and checks it against the revocation
// store. Returns ErrTokenRevoked for tokens invalidated by logout.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := a.manager.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if a.revoker != nil && claims.ID != "" {
		revoked, err := a.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke invalidates the token's jti until the token's natural expiry.
func (a *Authenticator) Revoke(ctx context.Context, claims *Claims) error {
	if a.revoker == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return a.revoker.Revoke(ctx, claims.ID, ttl)
}
