package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"grc-isms/internal/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// maxClients caps the limiter map
	maxClients = 10000
	// clientTTL is how long an idle bucket is kept; by then it has refilled
	clientTTL = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	name    string
	rps     rate.Limit
	burst   int
	message string
	metrics *metrics.Metrics

	mu         sync.Mutex
	clients    map[string]*client
	maxClients int
	now        func() time.Time
}

func NewRateLimiter(name string, rps float64, burst int, message string, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		name:       name,
		rps:        rate.Limit(rps),
		burst:      burst,
		message:    message,
		metrics:    m,
		clients:    make(map[string]*client),
		maxClients: maxClients,
		now:        time.Now,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if c, ok := rl.clients[ip]; ok {
		c.lastSeen = now
		return c.limiter
	}
	if len(rl.clients) >= rl.maxClients {
		rl.evict(now)
	}
	c := &client{limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: now}
	rl.clients[ip] = c
	return c.limiter
}

// evict drops clients idle for longer than clientTTL. If none are idle the
// least recently seen client goes, so active buckets survive a flood of new
// addresses.
func (rl *RateLimiter) evict(now time.Time) {
	var oldestIP string
	var oldest time.Time
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > clientTTL {
			delete(rl.clients, ip)
			continue
		}
		if oldestIP == "" || c.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, c.lastSeen
		}
	}
	if len(rl.clients) >= rl.maxClients {
		delete(rl.clients, oldestIP)
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		l := rl.limiter(c.ClientIP())
		allowed := l.Allow()

		remaining := int(math.Max(0, math.Floor(l.Tokens())))
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !allowed {
			rl.metrics.RateLimited(rl.name)
			h.Set("Retry-After", strconv.Itoa(retryAfter(rl.rps)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": rl.message})
			return
		}
		c.Next()
	}
}

// retryAfter is the number of whole seconds until one token is refilled.
func retryAfter(r rate.Limit) int {
	if r <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(r)))
}
