// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package verify runs the continuous verifier: a background loop that
// periodically re-checks every live session's identity and terminates
// sessions that fail. It deliberately does not attempt behavioral or
// anomaly-based trust scoring — re-verification is the same identity
// check admission uses at connection time, run again on a timer.
package verify
