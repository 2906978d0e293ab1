// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/authd/internal/platform/constants"
)

// RedisRevocationCache remembers the last family revocation per user.
//
// Entries live as long as an access token can, so an access token minted
// before the revocation is refused for the rest of its lifetime.
type RedisRevocationCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRevocationCache creates a Redis-backed revocation cache.
func NewRevocationCache(client redis.Cmdable, ttl time.Duration) *RedisRevocationCache {
	return &RedisRevocationCache{client: client, ttl: ttl}
}

/*
MarkRevoked records that every session of userID ended at at.

Parameters:
  - context: context.Context
  - userID: string
  - at: time.Time

Returns:
  - error: Connectivity errors
*/
func (repository *RedisRevocationCache) MarkRevoked(context context.Context, userID string, at time.Time) error {
	key := constants.RedisPrefixRevokedBefore + userID

	if err := repository.client.Set(context, key, at.UnixMilli(), repository.ttl).Err(); err != nil {
		return fmt.Errorf("redis_revocation_mark_failed: %w", err)
	}

	return nil
}

/*
RevokedBefore returns the last revocation instant of userID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - time.Time: Revocation instant
  - bool: false when no revocation is recorded
  - error: Connectivity or decoding errors
*/
func (repository *RedisRevocationCache) RevokedBefore(context context.Context, userID string) (time.Time, bool, error) {
	key := constants.RedisPrefixRevokedBefore + userID

	raw, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis_revocation_get_failed: %w", err)
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis_revocation_decode_failed: %w", err)
	}

	return time.UnixMilli(millis).UTC(), true, nil
}
