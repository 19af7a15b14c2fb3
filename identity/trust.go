// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import "time"

// Trust score bounds and the per-factor caps of the score formula.
const (
	trustBase             = 50
	trustConnectionCap    = 20
	trustConnectionDivisor = 10
	trustFailureCap       = 30
	trustFailurePenalty   = 5
	trustAgeCap           = 10
	trustAgeDivisorDays   = 30
	trustScoreMin         = 0
	trustScoreMax         = 100

	// RevocationTrustFloor is the default revocation threshold: a
	// score strictly below this value marks the identity revoked.
	// Deployments may override it via configuration.
	RevocationTrustFloor = 10
)

// Score computes a record's trust score as of now: a base of 50,
// plus up to 20 for connection history, minus up to 30 for
// verification failures, plus up to 10 for account age, clamped to
// [0, 100]. The score is always recomputed from the record's
// counters; it is never itself stored, so it cannot go stale or drift
// independently of the counters it summarizes.
func Score(record Record, now time.Time) int {
	connectionBonus := int(record.ConnectionCount) / trustConnectionDivisor
	if connectionBonus > trustConnectionCap {
		connectionBonus = trustConnectionCap
	}

	failurePenalty := int(record.VerificationFailures) * trustFailurePenalty
	if failurePenalty > trustFailureCap {
		failurePenalty = trustFailureCap
	}

	ageDays := int(now.Sub(record.RegisteredAt).Hours() / 24)
	if ageDays < 0 {
		ageDays = 0
	}
	ageBonus := ageDays / trustAgeDivisorDays
	if ageBonus > trustAgeCap {
		ageBonus = trustAgeCap
	}

	score := trustBase + connectionBonus - failurePenalty + ageBonus
	if score < trustScoreMin {
		score = trustScoreMin
	}
	if score > trustScoreMax {
		score = trustScoreMax
	}
	return score
}

// SecurityLevel classifies a trust score into the admission
// controller's security tiers. Thresholds are evaluated in order and
// the first match wins. A resource whose name mentions "critical" only
// changes the result for scores above 90, which classify as Privileged
// instead of Critical; lower scores keep their score-based level.
type SecurityLevel int

const (
	Untrusted SecurityLevel = iota
	Basic
	Verified
	Privileged
	Critical
)

func (l SecurityLevel) String() string {
	switch l {
	case Untrusted:
		return "untrusted"
	case Basic:
		return "basic"
	case Verified:
		return "verified"
	case Privileged:
		return "privileged"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ClassifySecurityLevel applies the first-match-wins score thresholds:
// <=30 Untrusted, <=50 Basic, <=70 Verified, <=90 (or a resource
// mentioning "critical") Privileged, otherwise Critical.
func ClassifySecurityLevel(score int, resourceMentionsCritical bool) SecurityLevel {
	switch {
	case score <= 30:
		return Untrusted
	case score <= 50:
		return Basic
	case score <= 70:
		return Verified
	case score <= 90 || resourceMentionsCritical:
		return Privileged
	default:
		return Critical
	}
}
