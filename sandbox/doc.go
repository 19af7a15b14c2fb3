// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox allocates and releases isolated execution
// environments for admitted connections that need one.
//
// DetectBackend probes the host once at startup for the first usable
// isolation backend — container, microVM, then full VM, in that
// priority order — and falls back to no isolation at all if none of
// the supporting binaries are on PATH. A Manager is bound to the
// detected backend and refuses every allocation under None. Every
// sandbox carries
// resource caps (CPU shares, memory, bandwidth) determined by the
// security level it was allocated for.
package sandbox
