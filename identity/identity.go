// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"time"
)

// Identity is a peer's self-asserted credential: a user-id bound to
// an Ed25519 public key for a bounded validity window, signed by the
// corresponding private key.
type Identity struct {
	UserID    string
	PublicKey ed25519.PublicKey
	Signature []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// signedMessage reproduces the exact byte concatenation the holder of
// the private key signed: user-id, public-key, issued-at in RFC 3339,
// expires-at in RFC 3339. Field order and the RFC 3339 text
// representation (not a binary timestamp) are both load-bearing — any
// deviation produces a message the original signer never signed.
func signedMessage(userID string, publicKey []byte, issuedAt, expiresAt time.Time) []byte {
	issued := issuedAt.UTC().Format(time.RFC3339)
	expires := expiresAt.UTC().Format(time.RFC3339)

	message := make([]byte, 0, len(userID)+len(publicKey)+len(issued)+len(expires))
	message = append(message, userID...)
	message = append(message, publicKey...)
	message = append(message, issued...)
	message = append(message, expires...)
	return message
}

// VerifySignature checks the identity's Ed25519 signature over its
// own handshake bytes. A public key or signature of the wrong length
// is rejected outright — ed25519.Verify would otherwise panic on a
// short key, so lengths are checked before it is called.
func VerifySignature(id Identity) error {
	if len(id.PublicKey) != ed25519.PublicKeySize {
		return ErrMalformedKeyMaterial{UserID: id.UserID, Reason: "public key is not 32 bytes"}
	}
	if len(id.Signature) != ed25519.SignatureSize {
		return ErrMalformedKeyMaterial{UserID: id.UserID, Reason: "signature is not 64 bytes"}
	}

	message := signedMessage(id.UserID, id.PublicKey, id.IssuedAt, id.ExpiresAt)
	if !ed25519.Verify(id.PublicKey, message, id.Signature) {
		return ErrInvalidSignature{UserID: id.UserID}
	}
	return nil
}

// Record is the registry's durable view of a registered identity: the
// credential itself plus the counters the trust score is derived
// from.
type Record struct {
	Identity            Identity
	RegisteredAt        time.Time
	LastSeenAt          time.Time
	ConnectionCount      uint32
	VerificationFailures uint32
}
