package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lessonbook/pkg/logger"
)

type ClientExtractor func(r *http.Request) string

type clientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps one token bucket per caller. The key is the
// gateway identity header when present, otherwise the client IP, so one
// busy parent cannot starve the rest.
type ClientRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientState
	limit     rate.Limit
	burst     int
	extractor ClientExtractor
	log       *logger.Logger
	stopCh    chan struct{}
}

// NewClientRateLimiter allows `requests` per `window` with bursts up to the
// same count.
func NewClientRateLimiter(requests int, window time.Duration, extractor ClientExtractor, log *logger.Logger) *ClientRateLimiter {
	if extractor == nil {
		extractor = DefaultClientExtractor
	}
	limiter := &ClientRateLimiter{
		clients:   make(map[string]*clientState),
		limit:     rate.Limit(float64(requests) / window.Seconds()),
		burst:     requests,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *ClientRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, state := range rl.clients {
				if time.Since(state.lastSeen) > 10*time.Minute {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ClientRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *ClientRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	rl.mu.Lock()
	state, exists := rl.clients[key]
	if !exists {
		state = &clientState{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = state
	}
	state.lastSeen = time.Now()
	rl.mu.Unlock()

	return state.limiter.Allow()
}

func ClientRateLimit(limiter *ClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)

			if !limiter.Allow(key) {
				rejectRateLimited(w, limiter.log, r, key)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, key string) {
	log.Warn("Rate limit exceeded",
		"request_id", RequestIDFromContext(r.Context()),
		"client", key,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Rate limit exceeded","code":"BAD_REQUEST"}`))
}

// DefaultClientExtractor prefers the gateway-set caller identity and falls
// back to the remote IP.
func DefaultClientExtractor(r *http.Request) string {
	if id := r.Header.Get("X-Parent-ID"); id != "" {
		return id
	}
	if id := r.Header.Get("X-Tutor-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
