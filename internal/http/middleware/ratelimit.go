package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mnavarrete/customers-api/internal/config"
	"github.com/mnavarrete/customers-api/internal/metrics"
)

// RateLimitConfig configures the Redis fixed-window limiter.
type RateLimitConfig struct {
	Redis     *redis.Client
	Limits    config.RateLimitConfig
	KeyPrefix string // e.g. "rl:"
}

const (
	opGeneral = "general"
	opRead    = "read"
	opWrite   = "write"
	opStats   = "stats"

	classAnon = "anon"
	classAuth = "auth"
)

// opClass buckets a request by operation: statistics routes count against the
// stats budget, other read verbs against read, everything else against write.
// Classes never consume each other's budget.
func opClass(c echo.Context) string {
	if strings.Contains(c.Path(), "statistics") {
		return opStats
	}
	if isReadMethod(c.Request().Method) {
		return opRead
	}
	return opWrite
}

// RateLimitMiddleware applies independent fixed-window counters per
// (caller class, operation class). Every request consumes its caller class's
// general bucket plus the op-class bucket. Exceeding either yields 429 with a
// Retry-After hint. Without Redis (dev) requests pass through.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Redis == nil {
				return next(c)
			}

			callerClass := classAnon
			identity := c.RealIP()
			limits := cfg.Limits.Anonymous
			if acc, ok := AccountFromCtx(c); ok {
				callerClass = classAuth
				identity = strconv.FormatInt(acc.ID, 10)
				limits = cfg.Limits.Authenticated
			}

			op := opClass(c)
			for _, bucket := range []struct {
				op    string
				limit config.BucketLimit
			}{
				{opGeneral, limits.General},
				{op, bucketLimit(limits, op)},
			} {
				limited, retryAfter, err := cfg.consume(c, callerClass, bucket.op, identity, bucket.limit)
				if err != nil {
					// counter store unavailable: do not block traffic
					return next(c)
				}
				if limited {
					metrics.RateLimitRejections.WithLabelValues(callerClass, bucket.op).Inc()
					if retryAfter > 0 {
						c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
					}
					return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
				}
			}
			return next(c)
		}
	}
}

func bucketLimit(limits config.ClassLimits, op string) config.BucketLimit {
	switch op {
	case opRead:
		return limits.Read
	case opWrite:
		return limits.Write
	case opStats:
		return limits.Stats
	}
	return limits.General
}

// consume increments one fixed-window counter. Key:
// rl:{class}:{op}:{identity}:{windowStart}.
func (cfg RateLimitConfig) consume(c echo.Context, callerClass, op, identity string, limit config.BucketLimit) (bool, int, error) {
	if limit.Limit <= 0 {
		return false, 0, nil
	}
	window := limit.Window
	if window <= 0 {
		window = time.Second
	}

	now := time.Now()
	windowStart := now.Truncate(window)
	key := cfg.KeyPrefix + callerClass + ":" + op + ":" + identity + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	ctx := c.Request().Context()
	pipe := cfg.Redis.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if cnt.Val() > int64(limit.Limit) {
		remain := window - now.Sub(windowStart)
		retryAfter := int(remain.Round(time.Second) / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return true, retryAfter, nil
	}
	return false, 0, nil
}
