// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"sync"
	"time"

	"github.com/bureau-foundation/sentry/lib/clock"
)

// Registry holds every peer identity the admission controller has
// registered and derives trust scores on demand. Lookups take the
// read lock; registration, connection accounting, and failure
// accounting take the write lock. No lock is ever held across a
// signature verification, which is pure CPU work independent of
// registry state.
type Registry struct {
	mu              sync.RWMutex
	records         map[string]*Record
	clock           clock.Clock
	revocationFloor int
	issuer          *Issuer
}

// NewRegistry constructs an empty registry. revocationFloor is the
// trust score below which an identity is treated as revoked; pass
// RevocationTrustFloor for the default.
func NewRegistry(clk clock.Clock, revocationFloor int) *Registry {
	return &Registry{
		records:         make(map[string]*Record),
		clock:           clk,
		revocationFloor: revocationFloor,
	}
}

// Register verifies the identity's signature and, if the user-id is
// new, inserts a fresh record with zeroed counters. If a record
// already exists, it is replaced only when the presented identity
// verifies and carries a strictly later issued-at than the stored
// one; otherwise Register reports ErrStaleRegistration and leaves the
// existing record untouched. A brand-new identity is never checked
// against the revocation predicate: revocation is a property of
// accumulated history, and a just-registered identity has none.
func (r *Registry) Register(id Identity) error {
	if err := VerifySignature(id); err != nil {
		return err
	}

	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[id.UserID]
	if ok && !id.IssuedAt.After(existing.Identity.IssuedAt) {
		return ErrStaleRegistration{UserID: id.UserID}
	}

	r.records[id.UserID] = &Record{
		Identity:     id,
		RegisteredAt: now,
		LastSeenAt:   now,
	}
	return nil
}

// Verify reports whether the presented identity currently passes
// admission: its signature verifies, its validity window covers now,
// and the user-id is not revoked according to its registered record's
// trust score. An identity with no registered record is never
// verified — Register must run first.
func (r *Registry) Verify(id Identity) error {
	if err := VerifySignature(id); err != nil {
		return err
	}

	now := r.clock.Now()
	if now.After(id.ExpiresAt) {
		return ErrExpired{UserID: id.UserID}
	}

	r.mu.RLock()
	record, ok := r.records[id.UserID]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownIdentity{UserID: id.UserID}
	}

	if Score(*record, now) < r.revocationFloor {
		return ErrInvalidSignature{UserID: id.UserID}
	}
	return nil
}

// TrustLevel returns the current trust score for a registered
// user-id.
func (r *Registry) TrustLevel(userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userID]
	if !ok {
		return 0, ErrUnknownIdentity{UserID: userID}
	}
	return Score(*record, r.clock.Now()), nil
}

// Revoked reports whether a registered user-id currently falls below
// the revocation floor. An unregistered user-id is reported revoked:
// there is no history to trust.
func (r *Registry) Revoked(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userID]
	if !ok {
		return true
	}
	return Score(*record, r.clock.Now()) < r.revocationFloor
}

// RecordConnection increments the connection counter used by the
// trust formula and refreshes the record's last-seen time.
func (r *Registry) RecordConnection(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[userID]
	if !ok {
		return ErrUnknownIdentity{UserID: userID}
	}
	record.ConnectionCount++
	record.LastSeenAt = r.clock.Now()
	return nil
}

// Touch refreshes a record's last-seen time without affecting the
// trust score, for periodic re-verification sweeps that should not
// inflate the connection counter every time they run.
func (r *Registry) Touch(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[userID]
	if !ok {
		return ErrUnknownIdentity{UserID: userID}
	}
	record.LastSeenAt = r.clock.Now()
	return nil
}

// RecordFailure increments the verification-failure counter used by
// the trust formula.
func (r *Registry) RecordFailure(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[userID]
	if !ok {
		return ErrUnknownIdentity{UserID: userID}
	}
	record.VerificationFailures++
	return nil
}

// SetIssuer attaches the registry's issuing authority, enabling
// Issue. A registry with no issuer attached only ever verifies
// identities presented to it; SetIssuer is how a node opts into also
// minting identities of its own.
func (r *Registry) SetIssuer(issuer *Issuer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issuer = issuer
}

// Issue mints a fresh identity for userID using the registry's
// attached issuing authority and immediately registers it, exactly
// as if the corresponding peer had presented it itself. Issue reports
// ErrNoIssuer if the registry has no issuer attached.
func (r *Registry) Issue(userID string, validity time.Duration) (Identity, error) {
	r.mu.RLock()
	issuer := r.issuer
	r.mu.RUnlock()

	if issuer == nil {
		return Identity{}, ErrNoIssuer{}
	}

	id := issuer.Issue(userID, r.clock.Now(), validity)
	if err := r.Register(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Lookup returns a copy of the current record for a user-id.
func (r *Registry) Lookup(userID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userID]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// Len reports the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
