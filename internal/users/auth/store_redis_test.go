// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authd/internal/platform/constants"
	"github.com/taibuivan/authd/internal/users/auth"
)

func TestRevocationCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	cache := auth.NewRevocationCache(client, 15*time.Minute)
	ctx := context.Background()

	_, found, err := cache.RevokedBefore(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, found)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, cache.MarkRevoked(ctx, "u-1", at))

	revokedAt, found, err := cache.RevokedBefore(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, at.Equal(revokedAt))
	assert.Equal(t, 15*time.Minute, server.TTL(constants.RedisPrefixRevokedBefore+"u-1"))

	server.FastForward(16 * time.Minute)

	_, found, err = cache.RevokedBefore(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRevocationCache_Unavailable(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	defer client.Close()
	server.Close()

	cache := auth.NewRevocationCache(client, time.Minute)

	assert.Error(t, cache.MarkRevoked(context.Background(), "u-1", time.Now()))
	_, _, err := cache.RevokedBefore(context.Background(), "u-1")
	assert.Error(t, err)
}
