// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"crypto/ed25519"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/sentry/identity"
	"github.com/bureau-foundation/sentry/lib/clock"
	"github.com/bureau-foundation/sentry/lib/testutil"
)

func signedTestIdentity(t *testing.T, userID string, now time.Time) identity.Identity {
	t.Helper()

	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	issued := now.Format(time.RFC3339)
	expires := now.Add(24 * time.Hour).Format(time.RFC3339)
	message := append(append(append([]byte(userID), publicKey...), issued...), expires...)

	return identity.Identity{
		UserID:    userID,
		PublicKey: publicKey,
		Signature: ed25519.Sign(privateKey, message),
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

// fakeSource is a SessionSource backed by a fixed slice.
type fakeSource struct {
	sessions []Session
}

func (f *fakeSource) LiveSessions() []Session {
	return f.sessions
}

func TestSweepTouchesHealthySessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(now)
	registry := identity.NewRegistry(clk, identity.RevocationTrustFloor)

	userID := testutil.UniqueID("peer")
	id := signedTestIdentity(t, userID, now)
	if err := registry.Register(id); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}

	source := &fakeSource{sessions: []Session{{PeerID: userID, Identity: id}}}
	terminated := make(chan Session, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	verifier := New(registry, clk, time.Minute, source, func(s Session, reason error) {
		terminated <- s
	}, logger)

	// Advance past the registration time so a refreshed LastSeenAt is
	// distinguishable from the value Register set.
	clk.Advance(time.Minute)
	verifier.sweep()

	select {
	case s := <-terminated:
		t.Fatalf("sweep() terminated healthy session %+v, want no termination", s)
	default:
	}

	record, ok := registry.Lookup(userID)
	if !ok {
		t.Fatal("Lookup() after sweep = not found, want recorded")
	}
	if want := now.Add(time.Minute); !record.LastSeenAt.Equal(want) {
		t.Fatalf("LastSeenAt = %v, want %v (Touch should refresh it)", record.LastSeenAt, want)
	}
	if record.ConnectionCount != 0 {
		t.Fatalf("ConnectionCount = %d, want 0 (sweep must not inflate trust via Touch)", record.ConnectionCount)
	}
}

func TestSweepTerminatesFailedVerification(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(now)
	registry := identity.NewRegistry(clk, identity.RevocationTrustFloor)

	userID := testutil.UniqueID("peer")
	id := signedTestIdentity(t, userID, now)
	if err := registry.Register(id); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}

	tampered := id
	tampered.UserID = userID // keep registry lookup key valid
	tampered.Signature = append([]byte{}, id.Signature...)
	tampered.Signature[0] ^= 0xFF // corrupt the signature

	source := &fakeSource{sessions: []Session{{PeerID: userID, Identity: tampered}}}
	terminated := make(chan Session, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	verifier := New(registry, clk, time.Minute, source, func(s Session, reason error) {
		terminated <- s
	}, logger)

	verifier.sweep()

	s := testutil.RequireReceive(t, terminated, 5*time.Second, "waiting for termination callback")
	if s.PeerID != userID {
		t.Fatalf("terminated session PeerID = %q, want %q", s.PeerID, userID)
	}

	record, ok := registry.Lookup(userID)
	if !ok {
		t.Fatal("Lookup() after failed sweep = not found, want record retained with incremented failures")
	}
	if record.VerificationFailures != 1 {
		t.Fatalf("VerificationFailures = %d, want 1", record.VerificationFailures)
	}
}

func TestRunSweepsOnEveryTick(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(now)
	registry := identity.NewRegistry(clk, identity.RevocationTrustFloor)

	userID := testutil.UniqueID("peer")
	id := signedTestIdentity(t, userID, now)
	if err := registry.Register(id); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}

	// A session whose signature no longer verifies makes every sweep call
	// the termination callback, so each tick's sweep is observable.
	tampered := id
	tampered.Signature = append([]byte{}, id.Signature...)
	tampered.Signature[0] ^= 0xFF

	source := &fakeSource{sessions: []Session{{PeerID: userID, Identity: tampered}}}
	swept := make(chan Session, 2)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := New(registry, clk, time.Minute, source, func(s Session, _ error) {
		swept <- s
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		verifier.Run(ctx)
		close(done)
	}()

	clk.WaitForTimers(1)
	clk.Advance(time.Minute)
	testutil.RequireReceive(t, swept, 5*time.Second, "waiting for the first tick's sweep")
	clk.Advance(time.Minute)
	testutil.RequireReceive(t, swept, 5*time.Second, "waiting for the second tick's sweep")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "waiting for Run to return after ctx cancellation")
}
