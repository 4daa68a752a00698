package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(2, time.Hour)

	if !l.Allow() {
		t.Error("first Allow() = false, want true")
	}
	if !l.Allow() {
		t.Error("second Allow() = false, want true")
	}
	if l.Allow() {
		t.Error("third Allow() = true, want false with empty bucket")
	}
}

func TestLimiterRefill(t *testing.T) {
	l := NewLimiter(1, 10*time.Millisecond)

	if !l.Allow() {
		t.Fatal("initial token missing")
	}
	if l.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(25 * time.Millisecond)
	if !l.Allow() {
		t.Error("expected token after refill interval")
	}
}

func TestLimiterRefillCapped(t *testing.T) {
	l := NewLimiter(2, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	// Long idle must not accumulate more than maxTokens.
	if !l.Allow() || !l.Allow() {
		t.Fatal("expected two tokens after idle")
	}
	if l.Allow() {
		t.Error("bucket exceeded its cap")
	}
}

func TestWaitWithTimeout(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	l.Allow()

	start := time.Now()
	if l.WaitWithTimeout(20 * time.Millisecond) {
		t.Error("WaitWithTimeout() = true, want false on empty bucket")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned after %v, want at least the timeout", elapsed)
	}
}
