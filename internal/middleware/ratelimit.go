package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxClients caps tracked clients; new clients beyond it are rejected.
const maxClients = 50_000

// SubmitLimiter throttles task submissions per client IP with a token
// bucket: rate tokens per second, at most burst saved up.
type SubmitLimiter struct {
	rate  float64
	burst float64
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*allowance
}

type allowance struct {
	tokens float64
	at     time.Time
}

// NewSubmitLimiter creates a limiter. A non-positive rate disables it.
func NewSubmitLimiter(rate float64, burst int) *SubmitLimiter {
	return &SubmitLimiter{
		rate:    rate,
		burst:   float64(max(burst, 1)),
		now:     time.Now,
		clients: make(map[string]*allowance),
	}
}

// Handler rejects requests over the limit with 429 and a Retry-After hint.
func (l *SubmitLimiter) Handler(next http.Handler) http.Handler {
	if l.rate <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wait, ok := l.take(clientIP(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many submissions"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// take spends one token for ip, or reports how long until one is available.
func (l *SubmitLimiter) take(ip string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxClients {
			return time.Second, false
		}
		a = &allowance{tokens: l.burst, at: now}
		l.clients[ip] = a
	}

	a.tokens = math.Min(l.burst, a.tokens+now.Sub(a.at).Seconds()*l.rate)
	a.at = now
	if a.tokens < 1 {
		return time.Duration((1 - a.tokens) / l.rate * float64(time.Second)), false
	}
	a.tokens--
	return 0, true
}

// Prune forgets clients whose bucket has refilled completely. Their next
// request starts from a full bucket either way.
func (l *SubmitLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for ip, a := range l.clients {
		if a.tokens+now.Sub(a.at).Seconds()*l.rate >= l.burst {
			delete(l.clients, ip)
		}
	}
}

// Clients returns the number of tracked clients.
func (l *SubmitLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// clientIP uses RemoteAddr only; forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
