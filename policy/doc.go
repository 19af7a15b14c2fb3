// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy evaluates an ordered list of rules against a
// connection request and returns the action the first matching rule
// names. No rule matching means Allow — policies narrow the default
// open posture, they do not widen it.
//
// The engine ships two default rules, evaluated before any
// operator-supplied ones: a resource named or described as "critical"
// is routed into a sandbox, and a sufficiently low trust score is
// denied outright regardless of resource.
package policy
