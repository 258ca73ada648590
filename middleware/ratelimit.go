package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleCutoff    = 10 * time.Minute
)

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client IP. Idle entries are dropped
// so the map does not grow with every address ever seen.
type visitors struct {
	mu      sync.Mutex
	byIP    map[string]*visitor
	rps     rate.Limit
	burst   int
	nowFunc func() time.Time
}

func (v *visitors) take(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{bucket: rate.NewLimiter(v.rps, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = v.nowFunc()
	return vis.bucket
}

func (v *visitors) evictIdle() {
	cutoff := v.nowFunc().Add(-limiterIdleCutoff)
	v.mu.Lock()
	defer v.mu.Unlock()
	for ip, vis := range v.byIP {
		if vis.lastSeen.Before(cutoff) {
			delete(v.byIP, ip)
		}
	}
}

// RateLimit applies a per-client-IP token bucket in front of the API.
// Rejections carry the same error envelope the handlers use, with code
// "rate_limited".
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	v := &visitors{
		byIP:    make(map[string]*visitor),
		rps:     rps,
		burst:   burst,
		nowFunc: time.Now,
	}

	go func() {
		t := time.NewTicker(limiterSweepInterval)
		defer t.Stop()
		for range t.C {
			v.evictIdle()
		}
	}()

	return func(c *gin.Context) {
		if !v.take(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
