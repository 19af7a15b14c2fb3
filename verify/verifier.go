// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/sentry/identity"
	"github.com/bureau-foundation/sentry/lib/clock"
)

// Session is the minimal view of a live connection the verifier needs
// to re-check: the identity it was admitted under.
type Session struct {
	PeerID   string
	Identity identity.Identity
}

// SessionSource supplies a snapshot of currently live sessions. The
// admission controller's connection table implements this.
type SessionSource interface {
	LiveSessions() []Session
}

// TerminationFunc is invoked once per session that fails
// re-verification. Implementations are expected to tear the
// connection down and emit an audit record; the verifier itself
// does neither.
type TerminationFunc func(session Session, reason error)

// Verifier periodically re-verifies every live session against the
// identity registry and terminates the ones that fail.
type Verifier struct {
	registry  *identity.Registry
	clock     clock.Clock
	interval  time.Duration
	source    SessionSource
	terminate TerminationFunc
	logger    *slog.Logger
}

// New constructs a verifier. interval is the time between sweeps;
// callers typically pass a few minutes.
func New(registry *identity.Registry, clk clock.Clock, interval time.Duration, source SessionSource, terminate TerminationFunc, logger *slog.Logger) *Verifier {
	return &Verifier{
		registry:  registry,
		clock:     clk,
		interval:  interval,
		source:    source,
		terminate: terminate,
		logger:    logger,
	}
}

// Run blocks, sweeping every interval until ctx is canceled. Each
// sweep takes an independent snapshot of live sessions: a session
// that disconnects mid-sweep is simply absent from the next snapshot,
// not specially handled.
func (v *Verifier) Run(ctx context.Context) {
	ticker := v.clock.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.sweep()
		}
	}
}

func (v *Verifier) sweep() {
	sessions := v.source.LiveSessions()
	for _, session := range sessions {
		if err := v.registry.Verify(session.Identity); err != nil {
			v.logger.Warn("continuous verification failed",
				"peer_id", session.PeerID, "error", err)
			_ = v.registry.RecordFailure(session.PeerID)
			v.terminate(session, err)
			continue
		}
		_ = v.registry.Touch(session.PeerID)
	}
}
