package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapleaiorg/kernel/pkg/contracts"
	"github.com/mapleaiorg/kernel/pkg/ledger"
	"github.com/mapleaiorg/kernel/pkg/policy"
	"github.com/mapleaiorg/kernel/pkg/profile"
)

func TestSubmit_ApprovesWithinProfileAndPolicyBounds(t *testing.T) {
	store := NewStaticProfileStore()
	store.Assign("wl-agent", profile.Agent())
	g := New(policy.NewEngine(), ledger.NewInMemory(1), store)

	commitment := contracts.Commitment{
		ID:         contracts.NewCommitmentID(),
		Declaring:  "wl-agent",
		Domain:     contracts.DomainCommunication,
		Reversible: contracts.FullyReversible(),
	}

	outcome, err := g.Submit(commitment)
	require.NoError(t, err)
	assert.Equal(t, contracts.DecisionApprove, outcome.Card.Decision)
	assert.NotEmpty(t, outcome.ReceiptHash)
	assert.Empty(t, outcome.ProfileViolations)
}

func TestSubmit_ProfileDenialBypassesPolicyEngine(t *testing.T) {
	store := NewStaticProfileStore()
	store.Assign("wl-agent", profile.Agent())
	g := New(policy.NewEngine(), ledger.NewInMemory(1), store)

	// Agent's allowed domains are COMMUNICATION and DATA_MUTATION only.
	commitment := contracts.Commitment{
		ID:         contracts.NewCommitmentID(),
		Declaring:  "wl-agent",
		Domain:     contracts.DomainFinancial,
		Reversible: contracts.FullyReversible(),
	}

	outcome, err := g.Submit(commitment)
	require.NoError(t, err)
	assert.Equal(t, contracts.DecisionDeny, outcome.Card.Decision)
	assert.NotEmpty(t, outcome.ProfileViolations)
	assert.Empty(t, outcome.Card.PolicyRefs, "policy engine should not have run")
}

func TestSubmit_PolicyEngineDecidesWhenProfilePermits(t *testing.T) {
	store := NewStaticProfileStore()
	store.Assign("wl-human", profile.Human())
	g := New(policy.NewEngine(), ledger.NewInMemory(1), store)

	commitment := contracts.Commitment{
		ID:         contracts.NewCommitmentID(),
		Declaring:  "wl-human",
		Domain:     contracts.DomainFinancial,
		Reversible: contracts.Irreversible(),
	}

	outcome, err := g.Submit(commitment)
	require.NoError(t, err)
	assert.Equal(t, contracts.DecisionRequireHumanReview, outcome.Card.Decision)
	assert.Contains(t, outcome.Card.PolicyRefs, "POL-CONST-FIN-IRREVERSIBLE")
}

func TestSubmit_AppendsCommitmentReceiptRegardlessOfDecision(t *testing.T) {
	store := NewStaticProfileStore()
	store.Assign("wl-agent", profile.Agent())
	led := ledger.NewInMemory(1)
	g := New(policy.NewEngine(), led, store)

	denied := contracts.Commitment{
		ID:         contracts.NewCommitmentID(),
		Declaring:  "wl-agent",
		Domain:     contracts.DomainFinancial,
		Reversible: contracts.FullyReversible(),
	}
	outcome, err := g.Submit(denied)
	require.NoError(t, err)

	receipt, err := led.GetByHash(outcome.ReceiptHash)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, contracts.ReceiptKindCommitment, receipt.Kind)
	assert.Equal(t, contracts.DecisionDeny, receipt.Commitment.Decision)
}

func TestSubmit_RejectsInvalidCommitment(t *testing.T) {
	store := NewStaticProfileStore()
	g := New(policy.NewEngine(), ledger.NewInMemory(1), store)

	_, err := g.Submit(contracts.Commitment{})
	require.Error(t, err)
	kerr, ok := err.(*contracts.KernelError)
	require.True(t, ok)
	assert.Equal(t, contracts.KindInvalidInput, kerr.Kind)
}

func TestSubmit_SequentialCommitmentsFromSameWorldlineChainInLedger(t *testing.T) {
	store := NewStaticProfileStore()
	store.Assign("wl-agent", profile.Agent())
	led := ledger.NewInMemory(1)
	g := New(policy.NewEngine(), led, store)

	commitment := contracts.Commitment{Declaring: "wl-agent", Domain: contracts.DomainCommunication, Reversible: contracts.FullyReversible()}
	first, err := g.Submit(commitment)
	require.NoError(t, err)
	second, err := g.Submit(commitment)
	require.NoError(t, err)

	assert.NotEqual(t, first.ReceiptHash, second.ReceiptHash)
	require.NoError(t, led.ValidateStream("wl-agent"))
}
