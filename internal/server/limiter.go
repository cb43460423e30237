package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type sessionEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sessionLimiter is a token bucket per key (a session id, or the client
// address for requests without one). Buckets idle longer than idleTTL are
// dropped.
type sessionLimiter struct {
	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newSessionLimiter(perMinute, burst int, idleTTL time.Duration) *sessionLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &sessionLimiter{
		sessions: map[string]*sessionEntry{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Allow reports whether key may make a request now
func (l *sessionLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idleTTL {
		l.sweepUnlocked(now)
	}

	e, ok := l.sessions[key]
	if !ok {
		e = &sessionEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.sessions[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *sessionLimiter) sweepUnlocked(now time.Time) {
	for id, e := range l.sessions {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.sessions, id)
		}
	}
	l.lastSweep = now
}

func (l *sessionLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}
