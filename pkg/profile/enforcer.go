package profile

import (
	"fmt"

	"github.com/mapleaiorg/kernel/pkg/contracts"
)

// warnThreshold is the fraction of a limit above which a permitted coupling
// still carries a warning.
const warnThreshold = 0.8

// CheckCoupling validates a proposed relational action against profile's
// coupling bounds (spec §4.4). Pure function, no shared state.
func CheckCoupling(p contracts.Profile, proposal contracts.CouplingProposal) contracts.EnforcementResult {
	limits := p.CouplingLimits
	var violations []contracts.Violation

	if proposal.Strength > limits.MaxInitialStrength {
		violations = append(violations, contracts.Violation{
			Dimension:   "coupling_limits.max_initial_strength",
			Severity:    contracts.SeverityViolation,
			Description: fmt.Sprintf("proposed strength %.3f exceeds limit %.3f", proposal.Strength, limits.MaxInitialStrength),
		})
	}
	if proposal.CurrentCouplings >= limits.MaxConcurrent {
		violations = append(violations, contracts.Violation{
			Dimension:   "coupling_limits.max_concurrent",
			Severity:    contracts.SeverityViolation,
			Description: fmt.Sprintf("current coupling count %d reaches limit %d", proposal.CurrentCouplings, limits.MaxConcurrent),
		})
	}
	if proposal.IsAsymmetric && !limits.AllowAsymmetric {
		violations = append(violations, contracts.Violation{
			Dimension:   "coupling_limits.allow_asymmetric",
			Severity:    contracts.SeverityViolation,
			Description: "asymmetric coupling not permitted by profile",
		})
	}
	if proposal.ConsentProvided < limits.ConsentRequired {
		violations = append(violations, contracts.Violation{
			Dimension:   "coupling_limits.consent_required",
			Severity:    contracts.SeverityCritical,
			Description: "consent level provided is below the profile's required level",
		})
	}
	if proposal.AttentionFraction > p.AttentionBudget.MaxSingleCouplingFraction {
		violations = append(violations, contracts.Violation{
			Dimension:   "attention_budget.max_single_coupling_fraction",
			Severity:    contracts.SeverityViolation,
			Description: fmt.Sprintf("attention fraction %.3f exceeds budget %.3f", proposal.AttentionFraction, p.AttentionBudget.MaxSingleCouplingFraction),
		})
	}

	if len(violations) > 0 {
		return contracts.EnforcementResult{
			Outcome:    contracts.EnforcementDenied,
			Reason:     "coupling proposal violates profile bounds",
			Violations: violations,
		}
	}

	if limits.MaxInitialStrength > 0 && proposal.Strength > warnThreshold*limits.MaxInitialStrength {
		return contracts.EnforcementResult{
			Outcome: contracts.EnforcementPermittedWithWarnings,
			Warnings: []string{fmt.Sprintf(
				"proposed strength %.3f exceeds %.0f%% of the profile's max initial strength",
				proposal.Strength, warnThreshold*100)},
		}
	}
	return contracts.EnforcementResult{Outcome: contracts.EnforcementPermitted}
}

// CheckCommitment validates a proposed commitment against profile's
// commitment-authority and consequence-scope bounds (spec §4.4).
func CheckCommitment(p contracts.Profile, proposal contracts.CommitmentProposal) contracts.EnforcementResult {
	auth := p.CommitmentAuthority
	scope := p.ConsequenceScope
	var violations []contracts.Violation

	if !domainAllowed(auth.AllowedDomains, proposal.Domain) {
		violations = append(violations, contracts.Violation{
			Dimension:   "commitment_authority.allowed_domains",
			Severity:    contracts.SeverityViolation,
			Description: fmt.Sprintf("domain %s not in profile's allowed domains", proposal.Domain),
		})
	}
	if proposal.RiskClass > auth.MaxRiskClass {
		violations = append(violations, contracts.Violation{
			Dimension:   "commitment_authority.max_risk_class",
			Severity:    contracts.SeverityViolation,
			Description: fmt.Sprintf("risk class %s exceeds profile's max risk class %s", proposal.RiskClass, auth.MaxRiskClass),
		})
	}
	if proposal.Reversible.Kind == contracts.ReversibilityIrreversible && !auth.AllowIrreversible {
		violations = append(violations, contracts.Violation{
			Dimension:   "commitment_authority.allow_irreversible",
			Severity:    contracts.SeverityViolation,
			Description: "irreversible commitments not permitted by profile",
		})
	}

	var warnings []string
	switch auth.ReversibilityPreference {
	case contracts.ReversibilityRequireReversible:
		if proposal.Reversible.Kind != contracts.ReversibilityFullyReversible {
			violations = append(violations, contracts.Violation{
				Dimension:   "commitment_authority.reversibility_preference",
				Severity:    contracts.SeverityViolation,
				Description: "profile requires fully reversible commitments",
			})
		}
	case contracts.ReversibilityPreferReversible:
		if proposal.Reversible.Kind == contracts.ReversibilityIrreversible {
			warnings = append(warnings, "profile prefers reversible commitments; this one is irreversible")
		}
	}

	if scope.MaxAffectedParties != nil && proposal.AffectedParties > *scope.MaxAffectedParties {
		violations = append(violations, contracts.Violation{
			Dimension:   "consequence_scope.max_affected_parties",
			Severity:    contracts.SeverityViolation,
			Description: fmt.Sprintf("affected parties %d exceeds limit %d", proposal.AffectedParties, *scope.MaxAffectedParties),
		})
	}
	if scope.MaxConsequenceValue != nil && proposal.ConsequenceValue != nil && *proposal.ConsequenceValue > *scope.MaxConsequenceValue {
		violations = append(violations, contracts.Violation{
			Dimension:   "consequence_scope.max_consequence_value",
			Severity:    contracts.SeverityViolation,
			Description: fmt.Sprintf("consequence value %d exceeds limit %d", *proposal.ConsequenceValue, *scope.MaxConsequenceValue),
		})
	}

	isIrreversible := proposal.Reversible.Kind == contracts.ReversibilityIrreversible
	needsHuman := (proposal.RiskClass >= contracts.RiskHigh && scope.RequireHumanForHighRisk) ||
		(isIrreversible && scope.RequireHumanForIrreversible)
	if needsHuman && !proposal.HasHumanApproval {
		violations = append(violations, contracts.Violation{
			Dimension:   "consequence_scope.require_human_for_high_risk",
			Severity:    contracts.SeverityCritical,
			Description: "profile requires human approval for this risk/reversibility combination",
		})
	}

	if len(violations) > 0 {
		return contracts.EnforcementResult{
			Outcome:    contracts.EnforcementDenied,
			Reason:     "commitment proposal violates profile bounds",
			Violations: violations,
		}
	}
	if len(warnings) > 0 {
		return contracts.EnforcementResult{Outcome: contracts.EnforcementPermittedWithWarnings, Warnings: warnings}
	}
	return contracts.EnforcementResult{Outcome: contracts.EnforcementPermitted}
}

// RequiresHumanOversight implements the human-involvement dimension's
// single rule (spec §4.4).
func RequiresHumanOversight(p contracts.Profile, risk contracts.RiskClass, isIrreversible bool) bool {
	switch p.HumanInvolvement.Level {
	case contracts.OversightFull:
		return true
	case contracts.OversightApprovalForHighRisk:
		return risk >= contracts.RiskHigh || isIrreversible
	case contracts.OversightNotification:
		return isIrreversible
	default: // AuditOnly, None
		return false
	}
}

func domainAllowed(allowed []contracts.EffectDomain, domain contracts.EffectDomain) bool {
	for _, d := range allowed {
		if d == domain {
			return true
		}
	}
	return false
}
