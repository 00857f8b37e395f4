package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
)

// DefaultLimiterIdleTTL — через сколько без запросов корзина адреса удаляется.
const DefaultLimiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter выдаёт отдельный token bucket каждому клиентскому адресу.
// Ключ берётся из RemoteAddr, заголовки клиента не учитываются.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter создаёт ограничитель rps запросов в секунду с запасом burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  DefaultLimiterIdleTTL,
		now:      time.Now,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	cl, ok := l.limiters[key]
	if !ok {
		cl = &clientLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = cl
	}
	cl.seen = now
	return cl.lim
}

// sweep удаляет корзины, к которым не обращались дольше idleTTL.
// Полный проход делается не чаще раза в idleTTL.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for key, cl := range l.limiters {
		if now.Sub(cl.seen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Middleware возвращает HTTP middleware, отвечающий 429 при превышении лимита.
func (l *RateLimiter) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !l.limiter(key).Allow() {
				log.Warn("too many requests", slog.String("client", key))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
