// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"testing"
	"time"
)

func signedIdentity(t *testing.T, userID string, issuedAt, expiresAt time.Time) (Identity, ed25519.PrivateKey) {
	t.Helper()

	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	message := signedMessage(userID, publicKey, issuedAt, expiresAt)
	signature := ed25519.Sign(privateKey, message)

	return Identity{
		UserID:    userID,
		PublicKey: publicKey,
		Signature: signature,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, privateKey
}

func TestVerifySignatureAccepts(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id, _ := signedIdentity(t, "alice", now, now.Add(24*time.Hour))

	if err := VerifySignature(id); err != nil {
		t.Fatalf("VerifySignature() = %v, want nil", err)
	}
}

func TestVerifySignatureRejectsTamperedField(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id, _ := signedIdentity(t, "alice", now, now.Add(24*time.Hour))

	id.UserID = "mallory"
	if err := VerifySignature(id); err == nil {
		t.Fatal("VerifySignature() = nil, want error for tampered user-id")
	}
}

func TestVerifySignatureRejectsMalformedKey(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id, _ := signedIdentity(t, "alice", now, now.Add(24*time.Hour))

	id.PublicKey = id.PublicKey[:16]
	err := VerifySignature(id)
	if _, ok := err.(ErrMalformedKeyMaterial); !ok {
		t.Fatalf("VerifySignature() = %v, want ErrMalformedKeyMaterial", err)
	}
}

func TestVerifySignatureRejectsMalformedSignature(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id, _ := signedIdentity(t, "alice", now, now.Add(24*time.Hour))

	id.Signature = id.Signature[:10]
	err := VerifySignature(id)
	if _, ok := err.(ErrMalformedKeyMaterial); !ok {
		t.Fatalf("VerifySignature() = %v, want ErrMalformedKeyMaterial", err)
	}
}
