package security

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"quiz_master_backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Secure 设置通用安全响应头，接口响应不允许缓存
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}

// KeyFunc 决定按什么维度限流
type KeyFunc func(c *gin.Context) string

func ClientIPKey(c *gin.Context) string { return c.ClientIP() }

// UserKey 已登录按用户限流，否则退回 IP，需挂在认证中间件之后
func UserKey(c *gin.Context) string {
	if user := util.GetUserFromContext(c); user != nil {
		return "user:" + strconv.FormatUint(uint64(user.UserID), 10)
	}
	return ClientIPKey(c)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 令牌桶限流，空闲的 key 定期清理
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	key   KeyFunc

	mu       sync.Mutex
	visitors map[string]*visitor

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter maxRequests 或 window 不为正数时返回 nil，Middleware 放行所有请求
func NewRateLimiter(maxRequests int, window time.Duration, key KeyFunc) *RateLimiter {
	if maxRequests <= 0 || window <= 0 {
		return nil
	}
	if key == nil {
		key = ClientIPKey
	}

	l := &RateLimiter{
		limit:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		idle:     max(3*window, time.Minute),
		key:      key,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	go l.sweep(time.Minute)
	return l
}

func (l *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for k, v := range l.visitors {
				if now.Sub(v.lastSeen) > l.idle {
					delete(l.visitors, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow 返回 key 当前是否还有配额
func (l *RateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !l.Allow(l.key(c)) {
			util.Error(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
}
