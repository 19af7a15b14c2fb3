// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// GenesisHash is the prev-hash of the first event ever appended to a
// log.
const GenesisHash = "genesis"

// Event is one entry in the audit log. Field order below is the
// canonical serialization order: timestamp, event-kind, peer-id,
// security-level, details, prev-hash.
type Event struct {
	Timestamp     time.Time         `cbor:"timestamp"`
	Kind          string            `cbor:"event_kind"`
	PeerID        string            `cbor:"peer_id"`
	SecurityLevel string            `cbor:"security_level"`
	Details       map[string]string `cbor:"details"`
	PrevHash      string            `cbor:"prev_hash"`
}

// Event kinds emitted by the admission controller and its leaves.
const (
	KindIdentityRegistered           = "identity_registered"
	KindIdentityVerificationPassed   = "identity_verification_passed"
	KindIdentityVerificationFailed   = "identity_verification_failed"
	KindPolicyDenied                 = "policy_denied"
	KindSandboxCreated               = "sandbox_created"
	KindSandboxDestroyed             = "sandbox_destroyed"
	KindRateLimited                  = "rate_limited"
	KindAccessGranted                = "access_granted"
	KindConnectionTerminated         = "connection_terminated"
	KindVerificationPassed           = "verification_passed"
	KindVerificationFailed           = "verification_failed"
	KindTimeout                      = "timeout"
	KindMessageDropped               = "message_dropped"
)

var cborEncodeMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{
		Sort: cbor.SortNone,
	}.EncMode()
	if err != nil {
		panic("audit: building cbor encode mode: " + err.Error())
	}
	return mode
}()

// canonicalize returns the CBOR encoding of the event, used both as the
// hash chain input and as the AEAD plaintext. Struct fields keep their
// declaration order; the entries of the Details map are not sorted, so
// the chain hashes the exact bytes that were written.
func canonicalize(event Event) ([]byte, error) {
	return cborEncodeMode.Marshal(event)
}

// decodeCBOR decodes a CBOR-encoded event.
func decodeCBOR(data []byte, event *Event) error {
	return cbor.Unmarshal(data, event)
}
