package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newTestLimiter(t *testing.T, maxAttempts int, window time.Duration) (*redisLimiter, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return newRedisLimiter(client, maxAttempts, window), server
}

func TestRedisLimiter_AllowsUpToMaxAttempts(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "a@example.com", entity.VerificationCodeRegister)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, err := limiter.Allow(ctx, "a@example.com", entity.VerificationCodeRegister)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLimiter_WindowExpiry(t *testing.T) {
	limiter, server := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "a@example.com", entity.VerificationCodeLogin)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "a@example.com", entity.VerificationCodeLogin)
	require.NoError(t, err)
	require.False(t, ok)

	assert.Equal(t, time.Minute, server.TTL(limiterKey("a@example.com", entity.VerificationCodeLogin)))
	server.FastForward(time.Minute + time.Second)

	ok, err = limiter.Allow(ctx, "a@example.com", entity.VerificationCodeLogin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_KeyWithoutTTLRecovers(t *testing.T) {
	limiter, server := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()
	key := limiterKey("a@example.com", entity.VerificationCodeLogin)

	// A counter whose TTL was never written.
	require.NoError(t, server.Set(key, "7"))
	require.Zero(t, server.TTL(key))

	ok, err := limiter.Allow(ctx, "a@example.com", entity.VerificationCodeLogin)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, server.TTL(key))

	server.FastForward(time.Minute + time.Second)

	ok, err = limiter.Allow(ctx, "a@example.com", entity.VerificationCodeLogin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_WindowIsNotExtended(t *testing.T) {
	limiter, server := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()
	key := limiterKey("a@example.com", entity.VerificationCodeRegister)

	_, err := limiter.Allow(ctx, "a@example.com", entity.VerificationCodeRegister)
	require.NoError(t, err)
	server.FastForward(20 * time.Second)

	_, err = limiter.Allow(ctx, "a@example.com", entity.VerificationCodeRegister)
	require.NoError(t, err)

	assert.Equal(t, 40*time.Second, server.TTL(key))
}

func TestRedisLimiter_ScopesByEmailAndType(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "A@Example.com ", entity.VerificationCodeRegister)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "a@example.com", entity.VerificationCodeRegister)
	require.NoError(t, err)
	assert.False(t, ok, "email is normalized")

	ok, err = limiter.Allow(ctx, "a@example.com", entity.VerificationCodeForgotPassword)
	require.NoError(t, err)
	assert.True(t, ok, "other intents have their own window")

	ok, err = limiter.Allow(ctx, "b@example.com", entity.VerificationCodeRegister)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	limiter, server := newTestLimiter(t, 1, time.Minute)
	server.Close()

	ok, err := limiter.Allow(context.Background(), "a@example.com", entity.VerificationCodeRegister)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewOTPSendLimiter_DisabledWithoutRedis(t *testing.T) {
	cfg := &config.Config{Redis: &config.RedisConfig{}, OTP: &config.OTPConfig{}}
	cfg.OTP.SendLimit.MaxAttempts = 1

	limiter := NewOTPSendLimiter(Params{
		Lifecycle: fxtest.NewLifecycle(t),
		Config:    cfg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	for i := 0; i < 5; i++ {
		ok, err := limiter.Allow(context.Background(), "a@example.com", entity.VerificationCodeRegister)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
