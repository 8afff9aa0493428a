package ratelimit

import (
	"testing"
	"time"
)

func TestAllowPermitsUpToLimitThenBlocks(t *testing.T) {
	l := New(5, 10*time.Minute)
	now := time.Now()

	for i := 0; i < 5; i++ {
		if !l.allowAt("1.2.3.4", now) {
			t.Fatalf("call %d: expected allowed", i)
		}
	}
	if l.allowAt("1.2.3.4", now) {
		t.Fatal("6th call within window: expected blocked")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(1, 10*time.Minute)
	now := time.Now()

	if !l.allowAt("1.2.3.4", now) {
		t.Fatal("expected first caller allowed")
	}
	if !l.allowAt("5.6.7.8", now) {
		t.Fatal("expected a different key to have its own budget")
	}
	if l.allowAt("1.2.3.4", now) {
		t.Fatal("expected first caller still capped")
	}
}

func TestAllowResetsAfterWindowElapses(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Now()

	if !l.allowAt("1.2.3.4", now) {
		t.Fatal("expected first call allowed")
	}
	if l.allowAt("1.2.3.4", now.Add(30*time.Second)) {
		t.Fatal("expected call mid-window blocked")
	}
	if !l.allowAt("1.2.3.4", now.Add(61*time.Second)) {
		t.Fatal("expected call after window reset to be allowed")
	}
}

func TestSweepDropsExpiredWindowsOnly(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Now()

	l.allowAt("stale", now)
	l.allowAt("fresh", now.Add(2*time.Minute))

	l.mu.Lock()
	l.counts["stale"].windowEnd = now.Add(-time.Second)
	l.mu.Unlock()

	l.Sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.counts["stale"]; ok {
		t.Fatal("expected stale window swept")
	}
	if _, ok := l.counts["fresh"]; !ok {
		t.Fatal("expected fresh window kept")
	}
}
