// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bureau-foundation/sentry/audit"
	"github.com/bureau-foundation/sentry/identity"
	"github.com/bureau-foundation/sentry/lib/clock"
	"github.com/bureau-foundation/sentry/policy"
	"github.com/bureau-foundation/sentry/ratelimit"
	"github.com/bureau-foundation/sentry/sandbox"
	"github.com/bureau-foundation/sentry/verify"
)

// Request is everything the controller needs to decide whether to
// admit a connection.
type Request struct {
	RemoteAddress string
	Identity      identity.Identity
	Resource      string
}

// Config bounds the controller's behavior independent of any single
// request.
type Config struct {
	MaxPeers int

	// MaxMessageBytes rejects a message outright, without consulting
	// the rate limiter, when its size exceeds this many bytes. Zero
	// means no size limit is enforced.
	MaxMessageBytes int
}

// Controller is the admission hub: it runs every other component's
// check in a fixed order and either establishes a SecureConnection or
// reports which stage rejected the request.
type Controller struct {
	config Config

	registry *identity.Registry
	policy   *policy.Engine
	sandbox  *sandbox.Manager
	limiter  *ratelimit.Limiter
	auditLog *audit.Log
	clock    clock.Clock
	logger   *slog.Logger

	mu          sync.RWMutex
	connections map[string]*SecureConnection
}

// New constructs a controller wired to its leaf components.
func New(
	config Config,
	registry *identity.Registry,
	policyEngine *policy.Engine,
	sandboxManager *sandbox.Manager,
	limiter *ratelimit.Limiter,
	auditLog *audit.Log,
	clk clock.Clock,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		config:      config,
		registry:    registry,
		policy:      policyEngine,
		sandbox:     sandboxManager,
		limiter:     limiter,
		auditLog:    auditLog,
		clock:       clk,
		logger:      logger,
		connections: make(map[string]*SecureConnection),
	}
}

// EvaluateAndEstablish runs the full admission pipeline: rate limit,
// peer cap, identity verification, policy evaluation, security-level
// classification, sandbox allocation if the decision calls for one,
// then registration and an audit record. It stops and returns an
// error at the first stage that rejects the request; every rejection
// is itself audited before being returned.
func (c *Controller) EvaluateAndEstablish(request Request) (*SecureConnection, error) {
	peerID := request.Identity.UserID

	if err := c.limiter.CheckConnection(request.RemoteAddress); err != nil {
		c.emit(audit.KindRateLimited, peerID, "", map[string]string{"remote_address": request.RemoteAddress})
		return nil, ErrDenied{Stage: "rate_limit", Reason: err}
	}

	if err := c.checkPeerCap(); err != nil {
		c.emit(audit.KindPolicyDenied, peerID, "", map[string]string{"reason": err.Error()})
		return nil, err
	}

	if err := c.registry.Register(request.Identity); err != nil {
		if _, stale := err.(identity.ErrStaleRegistration); !stale {
			// A brand-new id has no record yet, so RecordFailure reports
			// ErrUnknownIdentity; that is expected and not itself an error.
			_ = c.registry.RecordFailure(peerID)
			c.emit(audit.KindIdentityVerificationFailed, peerID, "", map[string]string{"reason": err.Error()})
			return nil, ErrDenied{Stage: "identity", Reason: err}
		}
	} else {
		c.emit(audit.KindIdentityRegistered, peerID, "", nil)
	}

	if err := c.registry.Verify(request.Identity); err != nil {
		_ = c.registry.RecordFailure(peerID)
		c.emit(audit.KindIdentityVerificationFailed, peerID, "", map[string]string{"reason": err.Error()})
		return nil, ErrDenied{Stage: "identity", Reason: err}
	}
	c.emit(audit.KindIdentityVerificationPassed, peerID, "", nil)

	trustScore, err := c.registry.TrustLevel(peerID)
	if err != nil {
		c.emit(audit.KindIdentityVerificationFailed, peerID, "", map[string]string{"reason": err.Error()})
		return nil, ErrDenied{Stage: "identity", Reason: err}
	}

	decision := c.policy.Evaluate(policy.Request{
		PeerID:     peerID,
		Resource:   request.Resource,
		TrustScore: trustScore,
	})
	if decision.Action == policy.Deny {
		_ = c.registry.RecordFailure(peerID)
		c.emit(audit.KindPolicyDenied, peerID, "", map[string]string{"rule": decision.MatchedRule})
		return nil, ErrDenied{Stage: "policy", Reason: fmt.Errorf("denied by rule %q", decision.MatchedRule)}
	}

	level := identity.ClassifySecurityLevel(trustScore, resourceMentionsCritical(request.Resource))

	var handle *sandbox.Handle
	if decision.Action == policy.RequireSandbox || level == identity.Privileged || level == identity.Critical {
		allocated, err := c.sandbox.Allocate(sandboxName(peerID), level)
		if err != nil {
			c.emit(audit.KindPolicyDenied, peerID, level.String(), map[string]string{"reason": "sandbox: " + err.Error()})
			return nil, ErrDenied{Stage: "sandbox", Reason: err}
		}
		handle = &allocated
		c.emit(audit.KindSandboxCreated, peerID, level.String(), map[string]string{"sandbox": allocated.Name})
	}

	_ = c.registry.RecordConnection(peerID)

	now := c.clock.Now()
	connection := &SecureConnection{
		PeerID:        peerID,
		RemoteAddress: request.RemoteAddress,
		Identity:      request.Identity,
		SecurityLevel: level,
		Resource:      request.Resource,
		Sandbox:       handle,
		State:         Active,
		EstablishedAt: now,
		LastVerified:  now,
	}

	c.mu.Lock()
	c.connections[peerID] = connection
	c.mu.Unlock()

	c.emit(audit.KindAccessGranted, peerID, level.String(), map[string]string{"resource": request.Resource})
	return connection, nil
}

// OnMessage decides whether a message of the given size from an
// already-admitted peer may proceed. A message over the configured
// size ceiling is dropped without consulting the rate limiter at all;
// otherwise the peer's per-second message bucket is checked. Every
// drop is audited.
func (c *Controller) OnMessage(peerID string, size int) error {
	if c.config.MaxMessageBytes > 0 && size > c.config.MaxMessageBytes {
		reason := ErrMessageTooLarge{Size: size, MaxSize: c.config.MaxMessageBytes}
		c.emit(audit.KindMessageDropped, peerID, "", map[string]string{"reason": reason.Error()})
		return ErrDenied{Stage: "message_size", Reason: reason}
	}

	if err := c.limiter.CheckMessage(peerID); err != nil {
		c.emit(audit.KindMessageDropped, peerID, "", map[string]string{"reason": err.Error()})
		return ErrDenied{Stage: "message_rate", Reason: err}
	}
	return nil
}

func (c *Controller) checkPeerCap() error {
	c.mu.RLock()
	count := len(c.connections)
	c.mu.RUnlock()

	if c.config.MaxPeers > 0 && count >= c.config.MaxPeers {
		return ErrPeerCapReached{MaxPeers: c.config.MaxPeers}
	}
	return nil
}

// Terminate tears a connection down: it removes the connection and
// the peer's rate-limit bucket, then emits an audit record. It
// implements verify.TerminationFunc.
func (c *Controller) Terminate(session verify.Session, reason error) {
	c.mu.Lock()
	connection, ok := c.connections[session.PeerID]
	if ok {
		connection.State = Terminated
		delete(c.connections, session.PeerID)
	}
	c.mu.Unlock()

	if ok && connection.Sandbox != nil {
		_ = c.sandbox.Release(connection.Sandbox.Name)
		c.emit(audit.KindSandboxDestroyed, session.PeerID, connection.SecurityLevel.String(), nil)
	}
	c.limiter.ReleasePeer(session.PeerID)

	level := ""
	if ok {
		level = connection.SecurityLevel.String()
	}
	c.emit(audit.KindConnectionTerminated, session.PeerID, level, map[string]string{"reason": reason.Error()})
}

// LiveSessions implements verify.SessionSource.
func (c *Controller) LiveSessions() []verify.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sessions := make([]verify.Session, 0, len(c.connections))
	for _, connection := range c.connections {
		sessions = append(sessions, verify.Session{PeerID: connection.PeerID, Identity: connection.Identity})
	}
	return sessions
}

// Stats is a snapshot of the controller's current state, for the
// diagnostic status surface.
type Stats struct {
	ActiveConnections int
	SandboxesActive   int
	RateLimitBuckets  int
}

func (c *Controller) Stats() Stats {
	c.mu.RLock()
	active := len(c.connections)
	c.mu.RUnlock()

	return Stats{
		ActiveConnections: active,
		SandboxesActive:   c.sandbox.Active(),
		RateLimitBuckets:  c.limiter.ConnectionBucketCount(),
	}
}

func (c *Controller) emit(kind, peerID, securityLevel string, details map[string]string) {
	err := c.auditLog.Append(audit.Event{
		Timestamp:     c.clock.Now(),
		Kind:          kind,
		PeerID:        peerID,
		SecurityLevel: securityLevel,
		Details:       details,
	})
	if err != nil {
		c.logger.Error("audit append failed", "kind", kind, "peer_id", peerID, "error", err)
	}
}

func resourceMentionsCritical(resource string) bool {
	return strings.Contains(strings.ToLower(resource), "critical")
}

func sandboxName(peerID string) string {
	name := "peer-" + peerID
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
