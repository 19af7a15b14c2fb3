// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import "fmt"

// ErrInvalidSignature means the Ed25519 signature did not verify over
// the exact handshake byte concatenation. [Registry.Verify] also
// returns it for an identity whose trust score has fallen below the
// registry's revocation floor; there is no separate revocation error.
type ErrInvalidSignature struct {
	UserID string
}

func (e ErrInvalidSignature) Error() string {
	return fmt.Sprintf("identity: invalid signature for user %q", e.UserID)
}

// ErrMalformedKeyMaterial means the public key or signature was not
// exactly the length Ed25519 requires. This is reported distinctly
// from ErrInvalidSignature: a short or long key is a structural
// defect, not merely a failed verification.
type ErrMalformedKeyMaterial struct {
	UserID string
	Reason string
}

func (e ErrMalformedKeyMaterial) Error() string {
	return fmt.Sprintf("identity: malformed key material for user %q: %s", e.UserID, e.Reason)
}

// ErrExpired means the identity's validity window does not cover the
// current time.
type ErrExpired struct {
	UserID string
}

func (e ErrExpired) Error() string {
	return fmt.Sprintf("identity: expired identity for user %q", e.UserID)
}

// ErrStaleRegistration means a registration attempt was rejected
// because an existing record for the user-id has an issued-at at
// least as recent as the one presented.
type ErrStaleRegistration struct {
	UserID string
}

func (e ErrStaleRegistration) Error() string {
	return fmt.Sprintf("identity: stale registration for user %q", e.UserID)
}

// ErrUnknownIdentity means no record exists for the user-id.
type ErrUnknownIdentity struct {
	UserID string
}

func (e ErrUnknownIdentity) Error() string {
	return fmt.Sprintf("identity: unknown user %q", e.UserID)
}

// ErrNoIssuer means Issue was called on a registry with no issuing
// authority attached.
type ErrNoIssuer struct{}

func (e ErrNoIssuer) Error() string {
	return "identity: registry has no issuer attached"
}
