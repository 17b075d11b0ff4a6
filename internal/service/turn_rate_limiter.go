package service

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TurnRateLimiter limita turnos por session id. Un limiter nil no limita.
type TurnRateLimiter interface {
	Allow(key string) bool
}

// LocalTurnLimiter mantiene un token bucket por sesión en memoria del proceso.
// Los buckets inactivos se descartan para que el mapa no crezca sin límite.
type LocalTurnLimiter struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	idle       time.Duration
	limiters   map[string]*limiterEntry
	now        func() time.Time
	lastSweep  time.Time
	sweepEvery time.Duration
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLocalTurnLimiter devuelve nil si perMinute <= 0 (limitación deshabilitada).
func NewLocalTurnLimiter(perMinute, burst int) *LocalTurnLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	now := time.Now()
	return &LocalTurnLimiter{
		limit:      rate.Limit(float64(perMinute) / 60),
		burst:      burst,
		idle:       30 * time.Minute,
		limiters:   make(map[string]*limiterEntry),
		now:        time.Now,
		lastSweep:  now,
		sweepEvery: time.Minute,
	}
}

func (l *LocalTurnLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		// Sin id el turno igual fallará validación; no se consume cupo.
		return true
	}

	l.mu.Lock()
	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = now
	if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweep(now)
	}
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (l *LocalTurnLimiter) sweep(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastAccess) > l.idle {
			delete(l.limiters, k)
		}
	}
	l.lastSweep = now
}

func (l *LocalTurnLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
