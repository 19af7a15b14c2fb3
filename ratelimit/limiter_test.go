// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import "testing"

func TestCheckConnectionAllowsWithinBurst(t *testing.T) {
	limiter := New(100, 10)

	for i := 0; i < 100; i++ {
		if err := limiter.CheckConnection("10.0.0.1"); err != nil {
			t.Fatalf("CheckConnection() call %d = %v, want nil", i, err)
		}
	}
}

func TestCheckConnectionRejectsOverBurst(t *testing.T) {
	limiter := New(5, 10)

	for i := 0; i < 5; i++ {
		if err := limiter.CheckConnection("10.0.0.1"); err != nil {
			t.Fatalf("CheckConnection() call %d = %v, want nil", i, err)
		}
	}
	if err := limiter.CheckConnection("10.0.0.1"); err == nil {
		t.Fatal("CheckConnection() = nil, want ErrRateLimited once burst is exhausted")
	}
}

func TestCheckConnectionPerAddress(t *testing.T) {
	limiter := New(1, 10)

	if err := limiter.CheckConnection("10.0.0.1"); err != nil {
		t.Fatalf("CheckConnection(10.0.0.1) = %v, want nil", err)
	}
	if err := limiter.CheckConnection("10.0.0.2"); err != nil {
		t.Fatalf("CheckConnection(10.0.0.2) = %v, want nil for a different address", err)
	}
}

func TestCheckMessagePerPeer(t *testing.T) {
	limiter := New(100, 3)

	for i := 0; i < 3; i++ {
		if err := limiter.CheckMessage("alice"); err != nil {
			t.Fatalf("CheckMessage() call %d = %v, want nil", i, err)
		}
	}
	if err := limiter.CheckMessage("alice"); err == nil {
		t.Fatal("CheckMessage() = nil, want ErrRateLimited once burst is exhausted")
	}
}

func TestReleasePeerResetsBucket(t *testing.T) {
	limiter := New(100, 1)

	if err := limiter.CheckMessage("alice"); err != nil {
		t.Fatalf("CheckMessage() = %v, want nil", err)
	}
	if err := limiter.CheckMessage("alice"); err == nil {
		t.Fatal("CheckMessage() = nil, want ErrRateLimited")
	}

	limiter.ReleasePeer("alice")
	if err := limiter.CheckMessage("alice"); err != nil {
		t.Fatalf("CheckMessage() after release = %v, want nil", err)
	}
}
