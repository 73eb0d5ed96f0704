package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/middleware"
	apperrors "github.com/furkanugurlu/location-dashboard/pkg/errors"

	"github.com/redis/go-redis/v9"
)

type LimiterConfig struct {
	RPS   int
	Burst int
}

// Allower decides whether one more request for key may pass.
type Allower interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// tokenBucket refills at refill_rate tokens per second up to max_tokens.
// KEYS[1] = key, ARGV = max_tokens, refill_rate, now (ms). Returns 1 if allowed.
var tokenBucket = redis.NewScript(`
local tokens_key = KEYS[1]
local max_tokens = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local bucket = redis.call('HMGET', tokens_key, 'tokens', 'last')
local tokens = tonumber(bucket[1]) or max_tokens
local last = tonumber(bucket[2]) or now
local delta = math.max(0, now - last) / 1000
local refill = math.floor(delta * refill_rate)
tokens = math.min(max_tokens, tokens + refill)
local allowed = 0
if tokens > 0 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('HMSET', tokens_key, 'tokens', tokens, 'last', now)
redis.call('EXPIRE', tokens_key, 2)
return allowed
`)

type RedisLimiter struct {
	Redis  redis.Scripter
	Prefix string
	Config LimiterConfig
	now    func() time.Time
}

func NewRedis(client redis.Scripter, prefix string, cfg LimiterConfig) *RedisLimiter {
	return &RedisLimiter{Redis: client, Prefix: prefix, Config: cfg, now: time.Now}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl.Prefix != "" {
		key = rl.Prefix + ":" + key
	}
	now := rl.now().UnixMilli()
	res, err := tokenBucket.Run(ctx, rl.Redis, []string{key}, rl.Config.Burst, rl.Config.RPS, now).Result()
	if err != nil {
		slog.Error("redis eval error", "key", key, "error", err)
		return false, err
	}
	var allowed int64
	switch v := res.(type) {
	case int64:
		allowed = v
	case string:
		allowed, _ = strconv.ParseInt(v, 10, 64)
	}
	slog.Debug("token bucket", "key", key, "allowed", allowed, "max", rl.Config.Burst, "rps", rl.Config.RPS)
	return allowed == 1, nil
}

func Middleware(limiter Allower, keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), keyFunc(r))
			if err != nil {
				apperrors.WriteError(w, apperrors.InternalServerError("rate limiter error", err))
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				apperrors.WriteError(w, apperrors.NewAppError(http.StatusTooManyRequests, "rate limit exceeded", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func KeyByIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// KeyByUserOrIP keys by the JWT subject when the request is authenticated.
func KeyByUserOrIP(r *http.Request) string {
	if claims := middleware.GetClaims(r); claims != nil && claims.Subject != "" {
		return "user:" + claims.Subject
	}
	return KeyByIP(r)
}
