// Package gate implements the Commitment Gate: the sole path through which
// a COMMITMENT envelope becomes an adjudicated, ledgered decision (spec
// §4.2). Every commitment is checked against its declaring worldline's
// profile, then, unless the profile denies it, evaluated by the policy
// engine, and a commitment receipt
// is appended to the ledger regardless of the outcome — denial is as much
// a recorded fact as approval.
package gate

import (
	"fmt"
	"sync"

	"github.com/mapleaiorg/kernel/pkg/canonicalize"
	"github.com/mapleaiorg/kernel/pkg/contracts"
	"github.com/mapleaiorg/kernel/pkg/ledger"
	"github.com/mapleaiorg/kernel/pkg/policy"
	"github.com/mapleaiorg/kernel/pkg/profile"
)

// DecisionOutcome is Submit's result: the policy engine's decision card,
// the hash of the commitment receipt the Gate appended for it, and any
// profile-level violations that led to an early denial (empty when the
// policy engine, not the profile enforcer, produced the decision).
type DecisionOutcome struct {
	Card              contracts.PolicyDecisionCard
	CommitmentID      contracts.CommitmentID
	ReceiptHash       contracts.ReceiptHash
	ProfileViolations []contracts.Violation
}

// Gate is the commitment adjudication boundary. One Gate typically backs
// one kernel node; it is safe for concurrent use by multiple callers.
type Gate struct {
	policyEngine *policy.Engine
	ledger       ledger.Ledger
	profiles     ProfileStore

	locksMu sync.Mutex
	locks   map[contracts.WorldlineID]*sync.Mutex
}

// New builds a Gate over the given policy engine, ledger backend, and
// profile store.
func New(policyEngine *policy.Engine, led ledger.Ledger, profiles ProfileStore) *Gate {
	return &Gate{
		policyEngine: policyEngine,
		ledger:       led,
		profiles:     profiles,
		locks:        make(map[contracts.WorldlineID]*sync.Mutex),
	}
}

// lockFor serializes every Submit call for a given declaring worldline, so
// that a worldline's profile check and ledger append are never interleaved
// with another Submit for the same worldline (spec §5).
func (g *Gate) lockFor(worldline contracts.WorldlineID) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()
	m, ok := g.locks[worldline]
	if !ok {
		m = &sync.Mutex{}
		g.locks[worldline] = m
	}
	return m
}

// Submit adjudicates a single commitment. The algorithm, per spec §4.2:
//  1. validate the commitment
//  2. resolve the declaring worldline's profile and run the profile
//     enforcer's commitment check
//  3. if the profile denies, build a terminal Deny card without consulting
//     the policy engine; otherwise run the policy engine
//  4. append a commitment receipt for the declaring worldline regardless
//     of the decision
func (g *Gate) Submit(commitment contracts.Commitment) (DecisionOutcome, error) {
	if err := commitment.Validate(); err != nil {
		return DecisionOutcome{}, err
	}

	mu := g.lockFor(commitment.Declaring)
	mu.Lock()
	defer mu.Unlock()

	riskClass := contracts.InferRiskClass(commitment.Reversible)
	proposal := contracts.CommitmentProposal{
		Domain:           commitment.Domain,
		RiskClass:        riskClass,
		Reversible:       commitment.Reversible,
		AffectedParties:  commitment.AffectedParties,
		ConsequenceValue: commitment.ConsequenceValue,
		HasHumanApproval: commitment.HasHumanApproval,
	}

	p := g.profiles.ProfileFor(commitment.Declaring)
	profileResult := profile.CheckCommitment(p, proposal)

	var card contracts.PolicyDecisionCard
	if profileResult.Denied() {
		card = contracts.PolicyDecisionCard{
			Decision:  contracts.DecisionDeny,
			Rationale: profileResult.Reason,
			RiskClass: riskClass,
			RiskScore: riskClass.Score(),
			Version:   policy.EngineVersion,
		}
	} else {
		card = g.policyEngine.Evaluate(commitment)
	}

	proposalHash, err := canonicalize.JCSString(proposal)
	if err != nil {
		return DecisionOutcome{}, contracts.Wrap(contracts.KindSerialization, "hashing commitment proposal", err)
	}
	policyHash, err := canonicalize.JCSString(card.PolicyRefs)
	if err != nil {
		return DecisionOutcome{}, contracts.Wrap(contracts.KindSerialization, "hashing policy references", err)
	}

	commitmentID := commitment.ID
	if commitmentID == "" {
		commitmentID = contracts.NewCommitmentID()
	}

	receipt, err := g.ledger.AppendCommitment(commitment.Declaring, contracts.CommitmentReceiptBody{
		ProposalHash: canonicalize.BLAKE3Hash([]byte(proposalHash)),
		CommitmentID: commitmentID,
		Class:        card.RiskClass,
		Decision:     card.Decision,
		PolicyHash:   canonicalize.BLAKE3Hash([]byte(policyHash)),
	})
	if err != nil {
		return DecisionOutcome{}, fmt.Errorf("appending commitment receipt: %w", err)
	}

	return DecisionOutcome{
		Card:              card,
		CommitmentID:      commitmentID,
		ReceiptHash:       receipt.ReceiptHash,
		ProfileViolations: profileResult.Violations,
	}, nil
}
