package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/errs"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits or rejects a request identified by key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimitMiddleware provides basic in-process rate limiting over a sliding window
type RateLimitMiddleware struct {
	requests    map[string][]int64 // key -> unix nano timestamps
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewRateLimitMiddleware allows maxRequests per key within each window.
func NewRateLimitMiddleware(maxRequests int, window time.Duration) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests:    make(map[string][]int64),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

func (m *RateLimitMiddleware) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now().UnixNano()
	windowStart := now - m.window.Nanoseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	var valid []int64
	for _, ts := range m.requests[key] {
		if ts > windowStart {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= m.maxRequests {
		m.requests[key] = valid
		return Decision{
			Limit:      m.maxRequests,
			RetryAfter: time.Duration(valid[0] - windowStart),
		}, nil
	}

	valid = append(valid, now)
	m.requests[key] = valid
	return Decision{Allowed: true, Limit: m.maxRequests, Remaining: m.maxRequests - len(valid)}, nil
}

const tokenBucketScript = `
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = capacity
  last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('PEXPIRE', key, ttl_ms)

return { allowed, tokens, retry_after_ms }
`

// RedisTokenBucket refills capacity tokens every interval, shared by every API instance.
type RedisTokenBucket struct {
	client   *redis.Client
	script   *redis.Script
	capacity int
	interval time.Duration
	prefix   string
}

func NewRedisTokenBucket(client *redis.Client, capacity int, interval time.Duration) *RedisTokenBucket {
	return &RedisTokenBucket{
		client:   client,
		script:   redis.NewScript(tokenBucketScript),
		capacity: capacity,
		interval: interval,
		prefix:   "ratelimit",
	}
}

func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	if b == nil || b.client == nil {
		return Decision{}, fmt.Errorf("rate limiter not configured")
	}
	if b.capacity <= 0 || b.interval <= 0 {
		return Decision{}, fmt.Errorf("rate limiter capacity and interval must be positive")
	}
	res, err := b.script.Run(ctx, b.client, []string{b.prefix + ":" + key},
		time.Now().UnixMilli(),
		b.capacity,
		b.interval.Milliseconds(),
		(2 * b.interval).Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result %v", res)
	}
	return Decision{
		Allowed:    asInt64(res[0]) == 1,
		Limit:      b.capacity,
		Remaining:  int(asInt64(res[1])),
		RetryAfter: time.Duration(asInt64(res[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// RateLimit rejects requests over the limit with 429. Limiter errors let the request through.
func RateLimit(l Limiter, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateKey(r)
			d, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, errs.New(errs.KindRateLimited, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateKey buckets by client IP and, once authenticated, by actor.
func rateKey(r *http.Request) string {
	parts := []string{"ip", getClientIP(r)}
	if actor, ok := ActorFromContext(r.Context()); ok {
		parts = append(parts, "user", actor.ID)
	}
	return strings.Join(parts, ":")
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check for forwarded headers first
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	// Fall back to remote address
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
