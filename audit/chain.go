// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// chainDomainKey domain-separates the audit hash chain from any other
// use of BLAKE3 elsewhere in this codebase. 32 bytes, ASCII padded.
var chainDomainKey = mustDomainKey("sentry-audit-chain-v1")

func mustDomainKey(label string) [32]byte {
	var key [32]byte
	if len(label) > 32 {
		panic("audit: domain key label too long: " + label)
	}
	copy(key[:], label)
	return key
}

// chainHash computes the next prev-hash: H(serialization ‖ prevHash).
// Returned as lowercase hex.
func chainHash(serialization []byte, prevHash string) string {
	hasher, err := blake3.NewKeyed(chainDomainKey[:])
	if err != nil {
		panic("audit: blake3.NewKeyed: " + err.Error())
	}
	hasher.Write(serialization)
	hasher.Write([]byte(prevHash))
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum)
}
