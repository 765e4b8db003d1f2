package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mapleaiorg/kernel/pkg/contracts"
)

func TestCheckCoupling_PermittedWithinBounds(t *testing.T) {
	p := Agent()
	result := CheckCoupling(p, contracts.CouplingProposal{
		Strength:          0.2,
		CurrentCouplings:  1,
		IsAsymmetric:      false,
		ConsentProvided:   contracts.ConsentNotify,
		AttentionFraction: 0.1,
	})
	assert.Equal(t, contracts.EnforcementPermitted, result.Outcome)
	assert.Empty(t, result.Violations)
}

func TestCheckCoupling_WarnsNearLimit(t *testing.T) {
	p := Agent()
	result := CheckCoupling(p, contracts.CouplingProposal{
		Strength:          0.45, // > 80% of 0.5
		CurrentCouplings:  1,
		ConsentProvided:   contracts.ConsentNotify,
		AttentionFraction: 0.1,
	})
	assert.Equal(t, contracts.EnforcementPermittedWithWarnings, result.Outcome)
	assert.NotEmpty(t, result.Warnings)
}

func TestCheckCoupling_DeniedOnStrength(t *testing.T) {
	p := Agent()
	result := CheckCoupling(p, contracts.CouplingProposal{
		Strength:        0.9,
		ConsentProvided: contracts.ConsentNotify,
	})
	assert.True(t, result.Denied())
	assert.Len(t, result.Violations, 1)
	assert.Equal(t, contracts.SeverityViolation, result.Violations[0].Severity)
}

func TestCheckCoupling_ConsentViolationIsCritical(t *testing.T) {
	p := Agent()
	result := CheckCoupling(p, contracts.CouplingProposal{
		Strength:        0.1,
		ConsentProvided: contracts.ConsentImplicit, // below Agent's required Notify
	})
	assert.True(t, result.Denied())
	assert.Equal(t, contracts.SeverityCritical, result.Violations[0].Severity)
}

func TestCheckCoupling_AsymmetricDeniedWhenNotAllowed(t *testing.T) {
	p := Agent()
	result := CheckCoupling(p, contracts.CouplingProposal{
		Strength:        0.1,
		IsAsymmetric:    true,
		ConsentProvided: contracts.ConsentNotify,
	})
	assert.True(t, result.Denied())
}

func TestCheckCommitment_ApprovesWithinAuthority(t *testing.T) {
	p := Agent()
	result := CheckCommitment(p, contracts.CommitmentProposal{
		Domain:           contracts.DomainCommunication,
		RiskClass:        contracts.RiskLow,
		Reversible:       contracts.FullyReversible(),
		AffectedParties:  1,
		HasHumanApproval: false,
	})
	assert.Equal(t, contracts.EnforcementPermitted, result.Outcome)
}

func TestCheckCommitment_DeniesDisallowedDomain(t *testing.T) {
	p := Human() // has Financial allowed
	result := CheckCommitment(Agent(), contracts.CommitmentProposal{
		Domain:     contracts.DomainFinancial,
		RiskClass:  contracts.RiskLow,
		Reversible: contracts.FullyReversible(),
	})
	assert.True(t, result.Denied())
	assert.Contains(t, result.Violations[0].Description, "not in profile's allowed domains")
	_ = p
}

func TestCheckCommitment_RequiresHumanApprovalForIrreversible(t *testing.T) {
	p := Financial()
	result := CheckCommitment(p, contracts.CommitmentProposal{
		Domain:           contracts.DomainFinancial,
		RiskClass:        contracts.RiskHigh,
		Reversible:       contracts.Irreversible(),
		HasHumanApproval: false,
	})
	assert.True(t, result.Denied())
	found := false
	for _, v := range result.Violations {
		if v.Severity == contracts.SeverityCritical {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckCommitment_HumanApprovalSatisfiesRequirement(t *testing.T) {
	p := Financial()
	result := CheckCommitment(p, contracts.CommitmentProposal{
		Domain:           contracts.DomainFinancial,
		RiskClass:        contracts.RiskHigh,
		Reversible:       contracts.Irreversible(),
		HasHumanApproval: true,
	})
	assert.False(t, result.Denied())
}

func TestCheckCommitment_MaxConsequenceValue(t *testing.T) {
	p := Financial()
	v := uint64(2_000_000)
	result := CheckCommitment(p, contracts.CommitmentProposal{
		Domain:           contracts.DomainFinancial,
		RiskClass:        contracts.RiskLow,
		Reversible:       contracts.FullyReversible(),
		ConsequenceValue: &v,
	})
	assert.True(t, result.Denied())
}

func TestRequiresHumanOversight(t *testing.T) {
	assert.True(t, RequiresHumanOversight(Financial(), contracts.RiskLow, false))       // FullOversight
	assert.True(t, RequiresHumanOversight(Agent(), contracts.RiskHigh, false))          // ApprovalForHighRisk
	assert.False(t, RequiresHumanOversight(Agent(), contracts.RiskLow, false))          // below threshold
	assert.True(t, RequiresHumanOversight(World(), contracts.RiskLow, true))            // Notification, irreversible
	assert.False(t, RequiresHumanOversight(Human(), contracts.RiskCritical, true))      // AuditOnly
}

func TestWithBase_FallsThroughToBaseDimensions(t *testing.T) {
	custom := WithBase("custom-agent", contracts.ProfileAgent)
	assert.Equal(t, contracts.ProfileCustom, custom.Type)
	assert.Equal(t, Agent().CouplingLimits, custom.CouplingLimits)
}
