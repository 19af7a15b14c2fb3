// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bureau-foundation/sentry/lib/sealed"
	"github.com/bureau-foundation/sentry/lib/secret"
)

// Issuer holds the registry's own long-term Ed25519 key pair, used to
// countersign identities this node mints when it acts as an issuer
// rather than merely a verifier of identities peers present to it.
// The private key is held only in an mlocked secret.Buffer for the
// lifetime of the Issuer; it is never written to disk unsealed.
type Issuer struct {
	privateKey *secret.Buffer
	PublicKey  ed25519.PublicKey
}

// Close releases the issuer's private key memory. Idempotent.
func (iss *Issuer) Close() error {
	if iss.privateKey != nil {
		return iss.privateKey.Close()
	}
	return nil
}

// Issue mints a fresh identity for userID, valid from now for the
// given duration, signed with the issuer's private key using the
// exact same byte layout VerifySignature checks.
func (iss *Issuer) Issue(userID string, now time.Time, validity time.Duration) Identity {
	expiresAt := now.Add(validity)
	message := signedMessage(userID, iss.PublicKey, now, expiresAt)
	signature := ed25519.Sign(ed25519.PrivateKey(iss.privateKey.Bytes()), message)

	return Identity{
		UserID:    userID,
		PublicKey: iss.PublicKey,
		Signature: signature,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
}

// LoadOrCreateIssuer opens the issuer key pair sealed at path,
// generating one on first use. The file holds two lines: an age
// X25519 private key in the clear (protected only by the file's
// owner-only permissions, the same way the audit log's AEAD key is
// stored) and the Ed25519 signing key sealed to that key's public
// half. The signing key is decrypted into an mlocked buffer and never
// touches disk unsealed.
func LoadOrCreateIssuer(path string) (*Issuer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("identity: reading issuer key file %s: %w", path, err)
		}
		return createIssuer(path)
	}

	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	if len(lines) != 2 {
		return nil, fmt.Errorf("identity: issuer key file %s is malformed", path)
	}
	sealPrivateKeyText, ciphertext := lines[0], lines[1]

	sealPrivateKey, err := secret.NewFromBytes([]byte(sealPrivateKeyText))
	if err != nil {
		return nil, fmt.Errorf("identity: protecting issuer seal key: %w", err)
	}
	defer sealPrivateKey.Close()

	privateKey, err := sealed.Decrypt(ciphertext, sealPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("identity: unsealing issuer key %s: %w", path, err)
	}
	if privateKey.Len() != ed25519.PrivateKeySize {
		privateKey.Close()
		return nil, fmt.Errorf("identity: unsealed issuer key is %d bytes, want %d", privateKey.Len(), ed25519.PrivateKeySize)
	}

	publicKey := append(ed25519.PublicKey{}, ed25519.PrivateKey(privateKey.Bytes()).Public().(ed25519.PublicKey)...)
	return &Issuer{privateKey: privateKey, PublicKey: publicKey}, nil
}

func createIssuer(path string) (*Issuer, error) {
	sealKeypair, err := sealed.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("identity: generating issuer seal key: %w", err)
	}
	defer sealKeypair.Close()

	_, signingKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generating issuer key: %w", err)
	}

	ciphertext, err := sealed.Encrypt(signingKey, []string{sealKeypair.PublicKey})
	if err != nil {
		return nil, fmt.Errorf("identity: sealing issuer key: %w", err)
	}

	contents := sealKeypair.PrivateKey.String() + "\n" + ciphertext + "\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		return nil, fmt.Errorf("identity: writing issuer key file %s: %w", path, err)
	}

	publicKey := append(ed25519.PublicKey{}, signingKey.Public().(ed25519.PublicKey)...)
	privateKey, err := secret.NewFromBytes(signingKey)
	if err != nil {
		return nil, fmt.Errorf("identity: protecting issuer key: %w", err)
	}

	return &Issuer{privateKey: privateKey, PublicKey: publicKey}, nil
}
