package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountsvc/internal/cache"
)

func TestTokenStore_Blacklist(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewTokenStore(cache.New(mr.Addr(), "", 0))
	ctx := context.Background()

	blacklisted, err := store.IsAccessTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, store.BlacklistAccessToken(ctx, "jti-1", time.Minute))
	blacklisted, err = store.IsAccessTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	mr.FastForward(2 * time.Minute)
	blacklisted, _ = store.IsAccessTokenBlacklisted(ctx, "jti-1")
	assert.False(t, blacklisted)
}

func TestTokenStore_IgnoresExpiredOrAnonymousTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewTokenStore(cache.New(mr.Addr(), "", 0))
	ctx := context.Background()

	require.NoError(t, store.BlacklistAccessToken(ctx, "", time.Minute))
	require.NoError(t, store.BlacklistAccessToken(ctx, "jti-2", 0))

	assert.Empty(t, mr.Keys())
}
