// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOrCreateIssuerGeneratesOnFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuer.sealed")

	issuer, err := LoadOrCreateIssuer(path)
	if err != nil {
		t.Fatalf("LoadOrCreateIssuer() = %v, want nil", err)
	}
	defer issuer.Close()

	if len(issuer.PublicKey) == 0 {
		t.Fatal("PublicKey is empty after generation")
	}
}

func TestLoadOrCreateIssuerReopensSameKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuer.sealed")

	first, err := LoadOrCreateIssuer(path)
	if err != nil {
		t.Fatalf("LoadOrCreateIssuer() first open = %v, want nil", err)
	}
	firstPublicKey := append([]byte{}, first.PublicKey...)
	first.Close()

	second, err := LoadOrCreateIssuer(path)
	if err != nil {
		t.Fatalf("LoadOrCreateIssuer() second open = %v, want nil", err)
	}
	defer second.Close()

	if string(second.PublicKey) != string(firstPublicKey) {
		t.Fatal("LoadOrCreateIssuer() reopen produced a different key than the sealed original")
	}
}

func TestIssuerIssueProducesVerifiableIdentity(t *testing.T) {
	issuer, err := LoadOrCreateIssuer(filepath.Join(t.TempDir(), "issuer.sealed"))
	if err != nil {
		t.Fatalf("LoadOrCreateIssuer() = %v, want nil", err)
	}
	defer issuer.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := issuer.Issue("alice", now, 24*time.Hour)

	if err := VerifySignature(id); err != nil {
		t.Fatalf("VerifySignature() on an issued identity = %v, want nil", err)
	}
	if id.UserID != "alice" {
		t.Fatalf("Issue() user-id = %q, want alice", id.UserID)
	}
	if !id.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("Issue() expires-at = %v, want %v", id.ExpiresAt, now.Add(24*time.Hour))
	}
}
