// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"testing"
	"time"
)

func TestScoreBaseline(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	record := Record{RegisteredAt: now}

	if got := Score(record, now); got != trustBase {
		t.Fatalf("Score() = %d, want %d", got, trustBase)
	}
}

func TestScoreClampsToBounds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	lowTrust := Record{RegisteredAt: now, VerificationFailures: 100}
	if got := Score(lowTrust, now); got != trustScoreMin {
		t.Fatalf("Score() = %d, want floor %d", got, trustScoreMin)
	}

	highTrust := Record{RegisteredAt: now.Add(-400 * 24 * time.Hour), ConnectionCount: 1000}
	// Every bonus is individually capped, so the highest reachable score
	// is base + connection cap + age cap.
	wantHigh := trustBase + trustConnectionCap + trustAgeCap
	if got := Score(highTrust, now); got != wantHigh {
		t.Fatalf("Score() = %d, want capped maximum %d", got, wantHigh)
	}
}

func TestScoreFormula(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	record := Record{
		RegisteredAt:         now.Add(-60 * 24 * time.Hour), // 60 days -> +2 capped age bonus
		ConnectionCount:      25,                            // +2 (capped far below 20)
		VerificationFailures: 2,                              // -10
	}

	want := trustBase + 2 - 10 + 2
	if got := Score(record, now); got != want {
		t.Fatalf("Score() = %d, want %d", got, want)
	}
}

func TestClassifySecurityLevel(t *testing.T) {
	cases := []struct {
		score     int
		critical  bool
		wantLevel SecurityLevel
	}{
		{score: 0, critical: false, wantLevel: Untrusted},
		{score: 30, critical: false, wantLevel: Untrusted},
		{score: 31, critical: false, wantLevel: Basic},
		{score: 50, critical: false, wantLevel: Basic},
		{score: 51, critical: false, wantLevel: Verified},
		{score: 70, critical: false, wantLevel: Verified},
		{score: 71, critical: false, wantLevel: Privileged},
		{score: 90, critical: false, wantLevel: Privileged},
		{score: 91, critical: false, wantLevel: Critical},
		{score: 40, critical: true, wantLevel: Basic},
	}

	for _, c := range cases {
		if got := ClassifySecurityLevel(c.score, c.critical); got != c.wantLevel {
			t.Errorf("ClassifySecurityLevel(%d, %v) = %v, want %v", c.score, c.critical, got, c.wantLevel)
		}
	}
}
