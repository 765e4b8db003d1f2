package policy

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mapleaiorg/kernel/pkg/contracts"
)

// EngineVersion is stamped on every decision card this engine produces.
const EngineVersion = "policy-engine-v1"

// Engine is the stateful, ordered policy set (spec §4.3). Reads (Evaluate)
// and writes (AddPolicy/RemovePolicy) are protected by a single
// reader-writer lock: evaluations are frequent and run concurrently with
// each other, mutations are rare and exclude all readers (spec §5).
type Engine struct {
	mu       sync.RWMutex
	policies []Policy
	clock    func() time.Time
}

// NewEngine builds an engine seeded with the three constitutional
// policies. Constitutional policies cannot be removed (Invariant P1).
func NewEngine() *Engine {
	e := &Engine{clock: time.Now}
	for _, p := range constitutionalDefaults() {
		e.policies = append(e.policies, p)
	}
	e.sortLocked()
	return e
}

// WithClock overrides the clock used to timestamp decision cards, for
// deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

func constitutionalDefaults() []Policy {
	return []Policy{
		{
			ID:          "POL-CONST-FIN-IRREVERSIBLE",
			Name:        "Financial Irreversible Review",
			Description: "Irreversible financial commitments always require human review.",
			Condition: All{Conditions: []Condition{
				DomainMatch{Domains: []contracts.EffectDomain{contracts.DomainFinancial}},
				IrreversibleOnly{},
			}},
			Action:         RequireHumanReview("irreversible financial commitment requires human review"),
			Priority:       1000,
			Constitutional: true,
		},
		{
			ID:          "POL-CONST-GOV-REVIEW",
			Name:        "Governance Review",
			Description: "Commitments affecting governance always require human review.",
			Condition:   DomainMatch{Domains: []contracts.EffectDomain{contracts.DomainGovernance}},
			Action:      RequireHumanReview("governance-domain commitment requires human review"),
			Priority:    950,
			Constitutional: true,
		},
		{
			ID:             "POL-CONST-HIGH-RISK-COSIGN",
			Name:           "High Risk Co-signature",
			Description:    "High or critical risk commitments require a co-signature.",
			Condition:      RiskThreshold{Class: contracts.RiskHigh},
			Action:         RequireCoSignature(),
			Priority:       900,
			Constitutional: true,
		},
	}
}

// AddPolicy rejects duplicate ids, inserts, and re-sorts by priority
// (highest first).
func (e *Engine) AddPolicy(p Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.policies {
		if existing.ID == p.ID {
			return contracts.NewKernelError(contracts.KindInvalidInput, fmt.Sprintf("policy %q already exists", p.ID))
		}
	}
	e.policies = append(e.policies, p)
	e.sortLocked()
	return nil
}

// RemovePolicy fails with ConstitutionalBreach if id names a constitutional
// policy (Invariant P1); otherwise removes it.
func (e *Engine) RemovePolicy(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, p := range e.policies {
		if p.ID != id {
			continue
		}
		if p.Constitutional {
			return contracts.NewKernelError(contracts.KindConstitutionalBreach, fmt.Sprintf("policy %q is constitutional and cannot be removed", id))
		}
		e.policies = append(e.policies[:i], e.policies[i+1:]...)
		return nil
	}
	return contracts.NewKernelError(contracts.KindNotFound, fmt.Sprintf("policy %q not found", id))
}

// ListPolicies returns a snapshot of the current policy set in evaluation
// order.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

func (e *Engine) sortLocked() {
	sort.SliceStable(e.policies, func(i, j int) bool {
		return e.policies[i].Priority > e.policies[j].Priority
	})
}

// Evaluate runs the deterministic evaluation algorithm in spec §4.3 and
// returns an immutable decision card.
func (e *Engine) Evaluate(commitment contracts.Commitment) contracts.PolicyDecisionCard {
	e.mu.RLock()
	defer e.mu.RUnlock()

	decision := contracts.DecisionApprove
	risk := contracts.InferRiskClass(commitment.Reversible)
	rationale := "All policies passed"
	var matched []string
	var factors []string

	ctx := EvalContext{Commitment: commitment, RiskClass: risk}

	for _, p := range e.policies {
		if !p.Condition.Matches(ctx) {
			continue
		}
		matched = append(matched, p.ID)
		factors = append(factors, fmt.Sprintf("%s: %s", p.ID, p.Name))

		switch p.Action.Kind {
		case ActionDeny:
			decision = contracts.DecisionDeny
			rationale = p.Action.Reason
			// Deny is terminal: stop iterating (spec §4.3 step 2).
			goto done
		case ActionRequireHumanReview:
			if decision != contracts.DecisionDeny {
				decision = contracts.DecisionRequireHumanReview
				rationale = p.Action.Reason
			}
		case ActionRequireCoSignature:
			if decision == contracts.DecisionApprove {
				decision = contracts.DecisionRequireCoSignature
			}
		case ActionSetRiskClass:
			if p.Action.RiskClass > risk {
				risk = p.Action.RiskClass
				ctx.RiskClass = risk
			}
		case ActionApprove:
			// no-op
		}
	}
done:

	return contracts.PolicyDecisionCard{
		Decision:   decision,
		Rationale:  rationale,
		RiskClass:  risk,
		RiskScore:  risk.Score(),
		PolicyRefs: matched,
		Factors:    factors,
		Timestamp:  e.clock(),
		Version:    EngineVersion,
	}
}
