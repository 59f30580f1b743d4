package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SecretKey: "secret", Issuer: "nodal"}
	token, err := NewJWTGenerator(cfg).GenerateToken("user-1", []string{"ws-1"}, time.Hour)
	require.NoError(t, err)

	v, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	claims, err := v.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.CanAccess("ws-1"))
	assert.False(t, claims.CanAccess("ws-2"))
}

func TestJWT_Rejections(t *testing.T) {
	cfg := JWTConfig{SecretKey: "secret", Issuer: "nodal"}
	v, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	_, err = v.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, err := NewJWTGenerator(JWTConfig{SecretKey: "other", Issuer: "nodal"}).GenerateToken("u", nil, time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	gen := NewJWTGenerator(cfg)
	gen.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := gen.GenerateToken("u", nil, time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	wrongIssuer, err := NewJWTGenerator(JWTConfig{SecretKey: "secret", Issuer: "elsewhere"}).GenerateToken("u", nil, time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidClaims)

	noUser, err := gen.GenerateToken("", nil, 4*time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(noUser)
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestClaims_EmptyScopeAllowsAll(t *testing.T) {
	assert.True(t, (&Claims{UserID: "u"}).CanAccess("anything"))
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewSlidingWindowLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)

	require.NoError(t, l.Reset(ctx, "a"))
	now = now.Add(2 * time.Minute)
	l.Prune()
	assert.Empty(t, l.hits)
}

func TestRedisRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	l := NewRedisRateLimiter(client, 2, time.Minute, "chat")
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ws-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ws-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Reset(ctx, "ws-1"))
	ok, err = l.Allow(ctx, "ws-1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, err = l.Allow(ctx, "ws-1")
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts a fresh count")
}
