// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// lowTrustFloor is the trust score below which the default
// "low-trust-deny" rule fires.
const lowTrustFloor = 20

// DefaultRules returns the two rules the engine always evaluates
// before any operator-supplied ones: a critical resource is routed
// into a sandbox, and a trust score below the floor is denied.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "critical-resource-sandbox",
			Conditions: []Condition{
				{Field: "resource", Operator: Contains, Value: "critical"},
			},
			Action: RequireSandbox,
		},
		{
			Name: "low-trust-deny",
			Conditions: []Condition{
				{Field: "trust_score", Operator: LessThan, Value: fmt.Sprintf("%d", lowTrustFloor)},
			},
			Action: Deny,
		},
	}
}

// Decision is the outcome of evaluating a Request: the action to
// take, the name of the rule that produced it (empty when no rule
// matched and the default Allow applied), and the ordered list of
// rule names that were checked.
type Decision struct {
	Action      Action
	MatchedRule string
	Trace       []string
}

// Engine holds an ordered, immutable-once-loaded list of rules.
// Evaluation only reads the slice, so it takes the read lock; Reload
// swaps the slice under the write lock.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine constructs an engine with the two default rules followed
// by any extra rules supplied, in order.
func NewEngine(extra []Rule) *Engine {
	rules := append(append([]Rule{}, DefaultRules()...), extra...)
	return &Engine{rules: rules}
}

// LoadExtraRules parses a YAML file of additional rules, in the shape
// { rules: [...] }, resolving each rule's action name to an Action.
func LoadExtraRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var document struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	for i := range document.Rules {
		action, ok := parseAction(document.Rules[i].ActionName)
		if !ok {
			return nil, fmt.Errorf("policy file %s: rule %q has unknown action %q",
				path, document.Rules[i].Name, document.Rules[i].ActionName)
		}
		document.Rules[i].Action = action
	}
	return document.Rules, nil
}

// Evaluate checks the request against every rule in order and
// returns the first match's action. No match means Allow.
func (e *Engine) Evaluate(r Request) Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	trace := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		trace = append(trace, rule.Name)
		if rule.matches(r) {
			return Decision{Action: rule.Action, MatchedRule: rule.Name, Trace: trace}
		}
	}
	return Decision{Action: Allow, Trace: trace}
}

// Reload replaces the rule set with the two default rules followed by
// a freshly loaded set of extra rules.
func (e *Engine) Reload(extra []Rule) {
	rules := append(append([]Rule{}, DefaultRules()...), extra...)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
}

// Rules returns a copy of the currently active rule set.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule{}, e.rules...)
}
