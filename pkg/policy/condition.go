// Package policy implements the ordered, priority-sorted policy set that
// evaluates commitments into decision cards (spec §4.3).
package policy

import "github.com/mapleaiorg/kernel/pkg/contracts"

// EvalContext is what a condition is evaluated against: the commitment and
// the risk class inferred for it so far in the evaluation pass.
type EvalContext struct {
	Commitment contracts.Commitment
	RiskClass  contracts.RiskClass
}

// Condition is the small algebra spec §4.3 names. Implementations are pure
// functions of an EvalContext.
type Condition interface {
	Matches(ctx EvalContext) bool
}

// Always matches every commitment.
type Always struct{}

func (Always) Matches(EvalContext) bool { return true }

// DomainMatch matches when the commitment's domain is in Domains.
type DomainMatch struct {
	Domains []contracts.EffectDomain
}

func (c DomainMatch) Matches(ctx EvalContext) bool {
	for _, d := range c.Domains {
		if d == ctx.Commitment.Domain {
			return true
		}
	}
	return false
}

// RiskThreshold matches when the inferred risk class is at or above Class.
type RiskThreshold struct {
	Class contracts.RiskClass
}

func (c RiskThreshold) Matches(ctx EvalContext) bool { return ctx.RiskClass >= c.Class }

// IrreversibleOnly matches commitments whose reversibility is Irreversible.
type IrreversibleOnly struct{}

func (IrreversibleOnly) Matches(ctx EvalContext) bool {
	return ctx.Commitment.Reversible.Kind == contracts.ReversibilityIrreversible
}

// TargetCountExceeds matches when the commitment's target set is larger
// than N.
type TargetCountExceeds struct {
	N int
}

func (c TargetCountExceeds) Matches(ctx EvalContext) bool {
	return len(ctx.Commitment.Targets) > c.N
}

// All matches when every sub-condition matches.
type All struct {
	Conditions []Condition
}

func (c All) Matches(ctx EvalContext) bool {
	for _, sub := range c.Conditions {
		if !sub.Matches(ctx) {
			return false
		}
	}
	return true
}

// Any matches when at least one sub-condition matches.
type Any struct {
	Conditions []Condition
}

func (c Any) Matches(ctx EvalContext) bool {
	for _, sub := range c.Conditions {
		if sub.Matches(ctx) {
			return true
		}
	}
	return false
}
