// Package ratelimit throttles verification code sends per recipient.
package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/lifecycle"
	"storefront/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const (
	keyPrefix     = "otp:send:"
	defaultWindow = 15 * time.Minute
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewOTPSendLimiter returns a Redis fixed-window limiter, or one that always allows when
// Redis is not configured or the attempt limit is not positive.
func NewOTPSendLimiter(params Params) service.OTPSendLimiter {
	cfg := params.Config
	if cfg.Redis == nil || strings.TrimSpace(cfg.Redis.Addr) == "" || cfg.OTP.SendLimit.MaxAttempts <= 0 {
		params.Logger.Info("OTP send throttling disabled")

		return noopLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := client.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "failed to ping Redis")
			}

			return nil
		},
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	return newRedisLimiter(client, cfg.OTP.SendLimit.MaxAttempts, cfg.OTP.SendLimit.Window)
}

type redisLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

func newRedisLimiter(client *redis.Client, maxAttempts int, window time.Duration) *redisLimiter {
	if window <= 0 {
		window = defaultWindow
	}

	return &redisLimiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// Allow counts the attempt in the current window. The window starts at the first attempt.
// INCR and EXPIRE NX run in one MULTI, and a key left without a TTL gets one on the next call.
func (l *redisLimiter) Allow(ctx context.Context, email string, codeType entity.VerificationCodeType) (bool, error) {
	key := limiterKey(email, codeType)

	var count *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)

		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "otp limiter unavailable")
	}

	return count.Val() <= l.maxAttempts, nil
}

func limiterKey(email string, codeType entity.VerificationCodeType) string {
	return keyPrefix + string(codeType) + ":" + strings.ToLower(strings.TrimSpace(email))
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string, entity.VerificationCodeType) (bool, error) {
	return true, nil
}

// Module wires the limiter into fx.
var Module = fx.Options(
	fx.Provide(NewOTPSendLimiter),
)
