package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medcircle/internal/cache"
)

const (
	refreshTokenKeyPrefix  = "refresh_token:"
	accessTokenKeyPrefix   = "blacklist:access_token:"
	passwordResetKeyPrefix = "password_reset:"
)

// PasswordResetExpiry bounds how long an emailed reset token stays usable.
const PasswordResetExpiry = time.Hour

// ErrTokenNotFound is returned when a stored token is missing or expired.
var ErrTokenNotFound = errors.New("token not found")

// RefreshRecord is what the store keeps per refresh JTI.
type RefreshRecord struct {
	UserID      string `json:"user_id"`
	Persistence string `json:"persistence"`
}

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, rec RefreshRecord, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (*RefreshRecord, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
	StorePasswordReset(ctx context.Context, token, identityID string, ttl time.Duration) error
	ConsumePasswordReset(ctx context.Context, token string) (identityID string, err error)
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, rec RefreshRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (*RefreshRecord, error) {
	data, err := s.cache.Get(ctx, refreshTokenKeyPrefix+tokenID)
	if err != nil || data == nil {
		return nil, ErrTokenNotFound
	}

	var rec RefreshRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal token data: %w", err)
	}
	if rec.UserID == "" {
		return nil, fmt.Errorf("invalid user_id in token data")
	}
	return &rec, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// BlacklistAccessToken adds an access token to the blacklist until it expires.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, accessTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil
	}
	return data != nil, nil
}

// StorePasswordReset remembers which identity a reset token belongs to.
func (s *TokenStore) StorePasswordReset(ctx context.Context, token, identityID string, ttl time.Duration) error {
	return s.cache.Set(ctx, passwordResetKeyPrefix+token, []byte(identityID), ttl)
}

// ConsumePasswordReset returns the identity for a reset token and invalidates it.
func (s *TokenStore) ConsumePasswordReset(ctx context.Context, token string) (string, error) {
	data, _ := s.cache.Take(ctx, passwordResetKeyPrefix+token)
	if data == nil {
		return "", ErrTokenNotFound
	}
	return string(data), nil
}
