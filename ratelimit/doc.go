// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit enforces two independent token-bucket quotas: a
// per-remote-address connection-attempt rate, and a per-peer-id
// message rate. Each bucket is created lazily on first use. A peer's
// message bucket is removed when the peer disconnects; connection
// buckets are never removed, so one is kept for every remote address
// ever seen.
package ratelimit
