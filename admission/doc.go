// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package admission orchestrates every other component into one
// admission decision per incoming connection: rate limiting, peer
// capacity, identity verification, policy evaluation, security-level
// classification, sandbox allocation, and finally registration plus
// the audit record. Controller.EvaluateAndEstablish runs that pipeline
// in order and stops at the first rejecting stage.
package admission
