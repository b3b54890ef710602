package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
)

const (
	refreshKeyPrefix = "auth:refresh:" // auth:refresh:{sha256(token)} -> user id
	revokedKeyPrefix = "auth:revoked:" // auth:revoked:{jti} -> 1
	resetKeyPrefix   = "auth:reset:"   // auth:reset:{sha256(token)} -> user id
)

// SessionStore keeps refresh tokens, revoked access-token ids and password reset
// tokens in Redis. Raw tokens are never stored, only their SHA-256.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) SaveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKeyPrefix+hashToken(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// ConsumeRefreshToken deletes the refresh token and returns its user id.
func (s *SessionStore) ConsumeRefreshToken(ctx context.Context, token string) (string, error) {
	return s.consume(ctx, refreshKeyPrefix+hashToken(token))
}

func (s *SessionStore) DeleteRefreshToken(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKeyPrefix+hashToken(token)).Err()
}

// Revoke blacklists an access token id until the token would have expired anyway.
func (s *SessionStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
}

func (s *SessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionStore) SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetKeyPrefix+hashToken(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken returns the user id for a reset token and deletes it (single use).
func (s *SessionStore) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	return s.consume(ctx, resetKeyPrefix+hashToken(token))
}

func (s *SessionStore) consume(ctx context.Context, key string) (string, error) {
	userID, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", domain.ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
