package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/resilience"
)

// idleClient is how long a client's bucket survives without requests.
const idleClient = 10 * time.Minute

// RateLimitConfig bounds how often one client may start an attribution.
type RateLimitConfig struct {
	// RequestsPerMinute is both the refill rate and the burst.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// KeyFunc picks the client key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// RateLimit gives every client its own token bucket and rejects with
// RATE_LIMITED once it is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	buckets := &clientBuckets{
		cfg: resilience.RateLimiterConfig{
			Name:  "http",
			Rate:  float64(cfg.RequestsPerMinute) / 60,
			Burst: cfg.RequestsPerMinute,
		},
		clients: make(map[string]*bucket),
	}
	return func(c *gin.Context) {
		if !buckets.allow(cfg.KeyFunc(c), time.Now()) {
			appErr := apperrors.RateLimited()
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

type bucket struct {
	rl   *resilience.RateLimiter
	seen time.Time
}

type clientBuckets struct {
	cfg resilience.RateLimiterConfig

	mu      sync.Mutex
	clients map[string]*bucket
	swept   time.Time
}

func (b *clientBuckets) allow(key string, now time.Time) bool {
	b.mu.Lock()
	if now.Sub(b.swept) > idleClient {
		for k, c := range b.clients {
			if now.Sub(c.seen) > idleClient {
				delete(b.clients, k)
			}
		}
		b.swept = now
	}
	c, ok := b.clients[key]
	if !ok {
		c = &bucket{rl: resilience.NewRateLimiter(b.cfg)}
		b.clients[key] = c
	}
	c.seen = now
	b.mu.Unlock()
	return c.rl.Allow()
}
