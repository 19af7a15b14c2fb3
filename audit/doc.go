// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit provides an append-only, authenticated-encrypted,
// hash-chained event log.
//
// Every record is AES-256-GCM sealed with a fresh 12-byte nonce, and
// each plaintext event embeds the BLAKE3 hash of the previous event's
// serialization concatenated with the previous event's own hash —
// binding ciphertext to chain position. Flipping a single bit anywhere
// in a written record is detectable by [Log.Verify], which recomputes
// the chain from the first record.
//
// A single background worker owns the log file; [Log.Append] enqueues
// onto a bounded channel and returns once the worker has written the
// record to the file (without an fsync), so a slow disk cannot let two writers race on
// the same file, and a full queue provides natural backpressure to
// callers upstream (see [Log.Append]'s deadline behavior).
package audit
