package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"counseling-api/internal/apperr"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
	done    chan struct{}
	once    sync.Once
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(rps),
		burst:   burst,
		done:    make(chan struct{}),
	}
	go rl.sweep(time.Minute, 3*time.Minute)
	return rl
}

// sweep drops clients idle for longer than idle.
func (rl *RateLimiter) sweep(every, idle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-t.C:
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if time.Since(c.seen) > idle {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if c, ok := rl.clients[ip]; ok {
		c.seen = time.Now()
		return c.lim
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.clients[ip] = &client{lim: l, seen: time.Now()}
	return l
}

func (rl *RateLimiter) Allow(ip string) bool {
	return rl.get(ip).Allow()
}

// RateLimit answers 429 once the caller's bucket is empty.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			abort(c, apperr.RateLimited("请求过于频繁，请稍后再试"))
			return
		}
		c.Next()
	}
}
