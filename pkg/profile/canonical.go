// Package profile defines the five canonical worldline profiles and the
// stateless enforcer that checks proposed couplings and commitments against
// a profile's bounds.
package profile

import "github.com/mapleaiorg/kernel/pkg/contracts"

func u32(v uint32) *uint32 { return &v }
func u64(v uint64) *uint64 { return &v }

// Human is the canonical profile for a human-operated worldline: wide
// commitment authority (every domain, up to Critical risk, irreversible
// effects allowed) and audit-only human involvement, so the enforcer asks
// for no separate human approval.
func Human() contracts.Profile {
	return contracts.Profile{
		Name: "human",
		Type: contracts.ProfileHuman,
		CouplingLimits: contracts.CouplingLimits{
			MaxInitialStrength: 1.0,
			MaxConcurrent:      1000,
			AllowAsymmetric:    true,
			ConsentRequired:    contracts.ConsentImplicit,
		},
		AttentionBudget: contracts.AttentionBudget{MaxSingleCouplingFraction: 1.0},
		IntentResolutionRules: contracts.IntentResolutionRules{
			RequireExplicitGoal: false,
			MinConfidence:       0.0,
		},
		CommitmentAuthority: contracts.CommitmentAuthority{
			AllowedDomains: []contracts.EffectDomain{
				contracts.DomainCommunication,
				contracts.DomainDataMutation,
				contracts.DomainFinancial,
				contracts.DomainInfrastructure,
				contracts.DomainGovernance,
			},
			MaxRiskClass:            contracts.RiskCritical,
			AllowIrreversible:       true,
			ReversibilityPreference: contracts.ReversibilityNoPreference,
		},
		ConsequenceScope: contracts.ConsequenceScope{
			RequireHumanForHighRisk:     false,
			RequireHumanForIrreversible: false,
		},
		HumanInvolvement: contracts.HumanInvolvement{Level: contracts.OversightAuditOnly},
	}
}

// Agent is the canonical profile for an autonomous agent worldline: narrow
// default authority, human review required above Medium risk or for
// irreversible effects.
func Agent() contracts.Profile {
	return contracts.Profile{
		Name: "agent",
		Type: contracts.ProfileAgent,
		CouplingLimits: contracts.CouplingLimits{
			MaxInitialStrength: 0.5,
			MaxConcurrent:      20,
			AllowAsymmetric:    false,
			ConsentRequired:    contracts.ConsentNotify,
		},
		AttentionBudget: contracts.AttentionBudget{MaxSingleCouplingFraction: 0.3},
		IntentResolutionRules: contracts.IntentResolutionRules{
			RequireExplicitGoal: true,
			MinConfidence:       0.6,
		},
		CommitmentAuthority: contracts.CommitmentAuthority{
			AllowedDomains: []contracts.EffectDomain{
				contracts.DomainCommunication,
				contracts.DomainDataMutation,
			},
			MaxRiskClass:             contracts.RiskMedium,
			AllowIrreversible:        false,
			ReversibilityPreference:  contracts.ReversibilityPreferReversible,
		},
		ConsequenceScope: contracts.ConsequenceScope{
			MaxAffectedParties:          u32(50),
			RequireHumanForHighRisk:     true,
			RequireHumanForIrreversible: true,
		},
		HumanInvolvement: contracts.HumanInvolvement{Level: contracts.OversightApprovalForHighRisk},
	}
}

// Financial is the canonical profile for a worldline authorized to commit
// financial effects: tight consequence-value bounds, mandatory human
// co-oversight for anything irreversible.
func Financial() contracts.Profile {
	return contracts.Profile{
		Name: "financial",
		Type: contracts.ProfileFinancial,
		CouplingLimits: contracts.CouplingLimits{
			MaxInitialStrength: 0.3,
			MaxConcurrent:      5,
			AllowAsymmetric:    false,
			ConsentRequired:    contracts.ConsentExplicit,
		},
		AttentionBudget: contracts.AttentionBudget{MaxSingleCouplingFraction: 0.2},
		IntentResolutionRules: contracts.IntentResolutionRules{
			RequireExplicitGoal: true,
			MinConfidence:       0.8,
		},
		CommitmentAuthority: contracts.CommitmentAuthority{
			AllowedDomains:           []contracts.EffectDomain{contracts.DomainFinancial},
			MaxRiskClass:             contracts.RiskHigh,
			AllowIrreversible:        true,
			ReversibilityPreference:  contracts.ReversibilityPreferReversible,
		},
		ConsequenceScope: contracts.ConsequenceScope{
			MaxAffectedParties:          u32(10),
			MaxConsequenceValue:         u64(1_000_000),
			RequireHumanForHighRisk:     true,
			RequireHumanForIrreversible: true,
		},
		HumanInvolvement: contracts.HumanInvolvement{Level: contracts.OversightFull},
	}
}

// World is the canonical profile for environmental-state worldlines
// (simulations, shared infrastructure): broad audited reach, no human in
// the loop for ordinary operation.
func World() contracts.Profile {
	return contracts.Profile{
		Name: "world",
		Type: contracts.ProfileWorld,
		CouplingLimits: contracts.CouplingLimits{
			MaxInitialStrength: 0.8,
			MaxConcurrent:      500,
			AllowAsymmetric:    true,
			ConsentRequired:    contracts.ConsentImplicit,
		},
		AttentionBudget: contracts.AttentionBudget{MaxSingleCouplingFraction: 0.5},
		IntentResolutionRules: contracts.IntentResolutionRules{
			RequireExplicitGoal: false,
			MinConfidence:       0.4,
		},
		CommitmentAuthority: contracts.CommitmentAuthority{
			AllowedDomains: []contracts.EffectDomain{
				contracts.DomainInfrastructure,
				contracts.DomainDataMutation,
			},
			MaxRiskClass:             contracts.RiskHigh,
			AllowIrreversible:        true,
			ReversibilityPreference:  contracts.ReversibilityNoPreference,
		},
		ConsequenceScope: contracts.ConsequenceScope{
			RequireHumanForHighRisk:     false,
			RequireHumanForIrreversible: true,
		},
		HumanInvolvement: contracts.HumanInvolvement{Level: contracts.OversightNotification},
	}
}

// Coordination is the canonical profile for fleet/orchestration worldlines
// that mediate between many agents: moderate authority, required
// co-signature context handled upstream by the policy engine rather than
// the profile itself.
func Coordination() contracts.Profile {
	return contracts.Profile{
		Name: "coordination",
		Type: contracts.ProfileCoordination,
		CouplingLimits: contracts.CouplingLimits{
			MaxInitialStrength: 0.6,
			MaxConcurrent:      100,
			AllowAsymmetric:    true,
			ConsentRequired:    contracts.ConsentNotify,
		},
		AttentionBudget: contracts.AttentionBudget{MaxSingleCouplingFraction: 0.4},
		IntentResolutionRules: contracts.IntentResolutionRules{
			RequireExplicitGoal: true,
			MinConfidence:       0.5,
		},
		CommitmentAuthority: contracts.CommitmentAuthority{
			AllowedDomains: []contracts.EffectDomain{
				contracts.DomainCommunication,
				contracts.DomainGovernance,
			},
			MaxRiskClass:             contracts.RiskMedium,
			AllowIrreversible:        false,
			ReversibilityPreference:  contracts.ReversibilityPreferReversible,
		},
		ConsequenceScope: contracts.ConsequenceScope{
			MaxAffectedParties:          u32(200),
			RequireHumanForHighRisk:     true,
			RequireHumanForIrreversible: true,
		},
		HumanInvolvement: contracts.HumanInvolvement{Level: contracts.OversightApprovalForHighRisk},
	}
}

// Canonical looks up the base profile for t. Custom falls through to Agent,
// the most conservative non-human default, matching canonical_profile's
// treatment of ProfileType::Custom in the original source.
func Canonical(t contracts.ProfileType) contracts.Profile {
	switch t {
	case contracts.ProfileHuman:
		return Human()
	case contracts.ProfileFinancial:
		return Financial()
	case contracts.ProfileWorld:
		return World()
	case contracts.ProfileCoordination:
		return Coordination()
	default:
		return Agent()
	}
}

// WithBase builds a Custom profile that starts from base's canonical
// values and lets the caller override individual dimensions.
func WithBase(name string, base contracts.ProfileType) contracts.Profile {
	p := Canonical(base)
	p.Name = name
	p.Type = contracts.ProfileCustom
	p.Base = base
	return p
}
