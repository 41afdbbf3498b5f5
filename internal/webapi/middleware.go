package webapi

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"

	"eventleader/internal/util/randutil"
)

// wrap is the common middleware chain: request logging with a request id,
// then gzip.
func (s *Server) wrap(h http.Handler) http.Handler {
	logged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("handle request",
			slog.String("rid", randutil.RequestID()),
			slog.String("uri", r.RequestURI),
			slog.String("method", r.Method),
			slog.String("addr", r.RemoteAddr),
		)
		h.ServeHTTP(w, r)
	})
	return gziphandler.GzipHandler(logged)
}

// ipLimiter keeps one token bucket per client address. Stale buckets are
// swept when the map grows past a threshold, so the map stays bounded under
// address churn.
type ipLimiter struct {
	every time.Duration
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const limiterSweepSize = 4096

func newIPLimiter(every time.Duration, burst int) *ipLimiter {
	return &ipLimiter{
		every:   every,
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

func (l *ipLimiter) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buckets) > limiterSweepSize {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > time.Minute {
				delete(l.buckets, k)
			}
		}
	}
	b, ok := l.buckets[host]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.buckets[host] = b
	}
	b.lastSeen = now
	return b.lim.Allow()
}

func (s *Server) rateLimit(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(r.RemoteAddr) {
			s.log.Info("rate limited", slog.String("addr", r.RemoteAddr))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		h(w, r)
	}
}
