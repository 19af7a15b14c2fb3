// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import "github.com/bureau-foundation/sentry/identity"

// ResourceCaps bounds what a sandboxed environment may consume.
type ResourceCaps struct {
	CPUShares    int
	MemoryMiB    int
	BandwidthMbps int
}

// capsBySecurityLevel gives each security level tier its resource
// caps. The critical-resource-sandbox policy rule can route a
// connection into a sandbox at any security level, not just Privileged
// and Critical, so every tier below those gets a modest but nonzero
// allowance rather than a starved 0/0 sandbox.
var capsBySecurityLevel = map[identity.SecurityLevel]ResourceCaps{
	identity.Untrusted:  {CPUShares: 256, MemoryMiB: 256, BandwidthMbps: 50},
	identity.Basic:      {CPUShares: 256, MemoryMiB: 256, BandwidthMbps: 50},
	identity.Verified:   {CPUShares: 256, MemoryMiB: 256, BandwidthMbps: 50},
	identity.Privileged: {CPUShares: 512, MemoryMiB: 512, BandwidthMbps: 100},
	identity.Critical:   {CPUShares: 1024, MemoryMiB: 1024, BandwidthMbps: 1000},
}

// CapsFor returns the resource caps for a security level.
func CapsFor(level identity.SecurityLevel) ResourceCaps {
	return capsBySecurityLevel[level]
}
