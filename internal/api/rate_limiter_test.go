package api

import (
	"testing"
)

func TestRateLimiter_PerOwnerBuckets(t *testing.T) {
	rl := NewRateLimiter(1) // 1 rps, burst 10

	// Exhaust one owner's burst.
	for i := 0; i < 10; i++ {
		if !rl.Allow("owner-a") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if rl.Allow("owner-a") {
		t.Error("request over burst should be rejected")
	}

	// Another owner has an independent budget.
	if !rl.Allow("owner-b") {
		t.Error("second owner must not share the first owner's bucket")
	}
}

func TestRateLimiter_DefaultsOnBadConfig(t *testing.T) {
	rl := NewRateLimiter(0)
	if !rl.Allow("owner-a") {
		t.Error("limiter with defaulted rate should allow requests")
	}
}
