package service

import (
	"testing"
	"time"
)

func TestLocalTurnLimiter(t *testing.T) {
	if NewLocalTurnLimiter(0, 5) != nil {
		t.Fatalf("expected nil limiter when disabled")
	}
	var disabled *LocalTurnLimiter
	if !disabled.Allow("s1") {
		t.Fatalf("nil limiter must allow")
	}

	l := NewLocalTurnLimiter(60, 2)
	clock := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return clock }

	if !l.Allow("s1") || !l.Allow("s1") {
		t.Fatalf("burst must be allowed")
	}
	if l.Allow("s1") {
		t.Fatalf("expected third immediate turn rejected")
	}
	if !l.Allow("s2") {
		t.Fatalf("sessions must not share a bucket")
	}

	clock = clock.Add(time.Second)
	if !l.Allow("s1") {
		t.Fatalf("expected token refilled after one second")
	}
}

func TestLocalTurnLimiter_EvictsIdleSessions(t *testing.T) {
	l := NewLocalTurnLimiter(60, 1)
	clock := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	l.Allow("old")
	clock = clock.Add(time.Hour)
	l.Allow("new")

	if size := l.size(); size != 1 {
		t.Fatalf("expected idle session evicted, got %d entries", size)
	}
}
