package handler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// counter is the subset of redis.Cmdable the limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimiter counts requests per client IP in fixed Redis windows.
type RateLimiter struct {
	redis counter
	log   logrus.FieldLogger
}

// NewRateLimiter returns a limiter backed by client. A nil client disables limiting.
func NewRateLimiter(client redis.Cmdable, log logrus.FieldLogger) *RateLimiter {
	if client == nil {
		return &RateLimiter{log: log}
	}
	return &RateLimiter{redis: client, log: log}
}

// Limit allows at most limit requests per window for each client IP.
// Requests pass through when Redis is unavailable or limit is zero.
func (rl *RateLimiter) Limit(keySuffix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil || rl.redis == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := fmt.Sprintf("rate_limit:%s:%s", keySuffix, clientIP(r))

			count, err := rl.redis.Incr(ctx, key).Result()
			if err != nil {
				rl.log.WithError(err).Warn("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rl.redis.Expire(ctx, key, window)
			}

			if count > int64(limit) {
				ttl, _ := rl.redis.TTL(ctx, key).Result()
				if ttl <= 0 {
					ttl = window
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
