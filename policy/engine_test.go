// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import "testing"

func TestDefaultAllowWhenNoRuleMatches(t *testing.T) {
	engine := NewEngine(nil)
	decision := engine.Evaluate(Request{PeerID: "alice", Resource: "docs", TrustScore: 80})

	if decision.Action != Allow {
		t.Fatalf("Evaluate() action = %v, want Allow", decision.Action)
	}
	if decision.MatchedRule != "" {
		t.Fatalf("Evaluate() matched rule = %q, want empty", decision.MatchedRule)
	}
}

func TestCriticalResourceRequiresSandbox(t *testing.T) {
	engine := NewEngine(nil)
	decision := engine.Evaluate(Request{PeerID: "alice", Resource: "critical-db", TrustScore: 80})

	if decision.Action != RequireSandbox {
		t.Fatalf("Evaluate() action = %v, want RequireSandbox", decision.Action)
	}
	if decision.MatchedRule != "critical-resource-sandbox" {
		t.Fatalf("Evaluate() matched rule = %q, want critical-resource-sandbox", decision.MatchedRule)
	}
}

func TestLowTrustDenied(t *testing.T) {
	engine := NewEngine(nil)
	decision := engine.Evaluate(Request{PeerID: "mallory", Resource: "docs", TrustScore: 5})

	if decision.Action != Deny {
		t.Fatalf("Evaluate() action = %v, want Deny", decision.Action)
	}
	if decision.MatchedRule != "low-trust-deny" {
		t.Fatalf("Evaluate() matched rule = %q, want low-trust-deny", decision.MatchedRule)
	}
}

func TestOrderingSandboxRuleWinsOverLowTrust(t *testing.T) {
	// critical-resource-sandbox is evaluated first; a low-trust peer
	// requesting a critical resource is sandboxed, not denied, because
	// the sandbox rule matches first in the default ordering.
	engine := NewEngine(nil)
	decision := engine.Evaluate(Request{PeerID: "mallory", Resource: "critical-db", TrustScore: 5})

	if decision.Action != RequireSandbox {
		t.Fatalf("Evaluate() action = %v, want RequireSandbox", decision.Action)
	}
}

func TestExtraRulesAppendAfterDefaults(t *testing.T) {
	extra := []Rule{
		{
			Name:       "deny-peer",
			Conditions: []Condition{{Field: "peer_id", Operator: Equals, Value: "mallory"}},
			Action:     Deny,
		},
	}
	engine := NewEngine(extra)
	decision := engine.Evaluate(Request{PeerID: "mallory", Resource: "docs", TrustScore: 80})

	if decision.Action != Deny || decision.MatchedRule != "deny-peer" {
		t.Fatalf("Evaluate() = %+v, want Deny via deny-peer", decision)
	}
}
