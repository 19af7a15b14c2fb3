// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity verifies peer identities and maintains a trust
// score for each one.
//
// Identities are verified with an Ed25519 signature over the exact
// byte concatenation user-id ‖ public-key ‖ issued-at (RFC 3339) ‖
// expires-at (RFC 3339) — the same "sign the handshake bytes, verify
// with crypto/ed25519" shape used elsewhere in this codebase for peer
// authentication. Trust score is a deterministic function of a
// registered identity's connection count, verification failures, and
// age; it is never stored as an independently mutable counter, so it
// cannot drift out of sync with the record it is derived from.
package identity
