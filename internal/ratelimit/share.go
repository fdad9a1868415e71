package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/quoteshare/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyShareAccess = "share:access:%s:%s"
	keyShareEdit   = "share:edit:%s"
)

// ShareLimiter throttles the public share surface per token and client IP and
// admits one edit at a time per token. A nil limiter allows everything.
type ShareLimiter struct {
	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
}

// NewShareLimiter returns nil when rate limiting is disabled.
func NewShareLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*ShareLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		log.Info("share rate limiting disabled")
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: limitCfg.RedisPassword,
		DB:       limitCfg.RedisDB,
	})

	limiter, err := newShareLimiter(client, limitCfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("rate limit redis ping: %w", err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("share rate limiting enabled",
		zap.String("redis_addr", addr),
		zap.Float64("rate", limitCfg.ShareRate),
		zap.Int("burst", limitCfg.ShareBurst),
	)
	return limiter, nil
}

func newShareLimiter(client redis.UniversalClient, cfg config.RateLimitConfig) (*ShareLimiter, error) {
	if cfg.ShareRate <= 0 || cfg.ShareBurst <= 0 {
		return nil, ErrInvalidRate
	}
	lockTTL := cfg.EditLockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &ShareLimiter{
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    cfg.ShareRate,
		burst:   cfg.ShareBurst,
		lockTTL: lockTTL,
	}, nil
}

func (l *ShareLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowAccess consumes one token from the bucket of (share token, client IP).
func (l *ShareLimiter) AllowAccess(ctx context.Context, token, clientIP string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, accessKey(token, clientIP), l.rate, l.burst)
}

// TryLockEdit reports false while another edit through the same token is in
// flight. The returned lease must be passed to ReleaseEdit.
func (l *ShareLimiter) TryLockEdit(ctx context.Context, token string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, editKey(token), l.lockTTL)
}

func (l *ShareLimiter) ReleaseEdit(ctx context.Context, token, lease string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, editKey(token), lease)
}

// Share tokens are bearer secrets; only their digest is written to Redis.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:12])
}

func accessKey(token, clientIP string) string {
	ip := strings.TrimSpace(clientIP)
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf(keyShareAccess, tokenDigest(token), ip)
}

func editKey(token string) string {
	return fmt.Sprintf(keyShareEdit, tokenDigest(token))
}
