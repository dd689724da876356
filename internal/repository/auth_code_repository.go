package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/scportal/search-api/pkg/errors"
)

const (
	authCodeKeyPrefix     = "otac:"
	authCodeUserKeyPrefix = "otac:user:"
)

// AuthCodeRepository stores one-time download auth codes in Redis. Each code
// maps to a user id and expires on its own; a user holds at most one code.
type AuthCodeRepository struct {
	client *redis.Client
}

// NewAuthCodeRepository constructs the repository.
func NewAuthCodeRepository(client *redis.Client) *AuthCodeRepository {
	return &AuthCodeRepository{client: client}
}

func authCodeKey(code int) string {
	return authCodeKeyPrefix + strconv.Itoa(code)
}

// Reserve stores the code for the user unless it is already taken. The
// user's previous code, if any, is revoked.
func (r *AuthCodeRepository) Reserve(ctx context.Context, code int, userID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, authCodeKey(code), userID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve auth code: %w", err)
	}
	if !ok {
		return false, nil
	}

	userKey := authCodeUserKeyPrefix + userID
	previous, err := r.client.GetSet(ctx, userKey, code).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return true, fmt.Errorf("track auth code: %w", err)
	}
	if err := r.client.Expire(ctx, userKey, ttl).Err(); err != nil {
		return true, fmt.Errorf("expire auth code owner: %w", err)
	}
	if previous != "" && previous != strconv.Itoa(code) {
		if err := r.client.Del(ctx, authCodeKeyPrefix+previous).Err(); err != nil {
			return true, fmt.Errorf("revoke previous auth code: %w", err)
		}
	}
	return true, nil
}

// Consume atomically deletes the code and returns its user id.
func (r *AuthCodeRepository) Consume(ctx context.Context, code int) (string, error) {
	userID, err := r.client.GetDel(ctx, authCodeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrInvalidAuthCode
		}
		return "", fmt.Errorf("consume auth code: %w", err)
	}
	return userID, nil
}
