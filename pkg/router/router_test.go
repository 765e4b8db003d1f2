package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapleaiorg/kernel/pkg/canonicalize"
	"github.com/mapleaiorg/kernel/pkg/contracts"
)

type stubExecutionLayer struct {
	registered map[contracts.WorldlineID]bool
}

func (s stubExecutionLayer) IsExecutionOrigin(w contracts.WorldlineID) bool {
	return s.registered[w]
}

func buildEnvelope(t *testing.T, origin contracts.WorldlineID, body contracts.EnvelopeBody, resonance contracts.ResonanceType) contracts.Envelope {
	t.Helper()
	env := contracts.Envelope{
		Header: contracts.EnvelopeHeader{
			EnvelopeID: contracts.NewEventID(),
			Resonance:  resonance,
			Origin:     origin,
			CreatedAt:  contracts.TemporalAnchor{PhysicalMs: 1_000_000},
			TTLMs:      60_000,
		},
		Body: body,
	}
	hash, err := canonicalize.DomainHash(canonicalize.EnvelopeIntegrityDomain, env)
	require.NoError(t, err)
	env.Integrity.Hash = hash
	return env
}

func meaningEnvelope(t *testing.T, origin contracts.WorldlineID) contracts.Envelope {
	return buildEnvelope(t, origin, contracts.EnvelopeBody{Meaning: &contracts.MeaningPayload{Content: "observed"}}, contracts.ResonanceMeaning)
}

func intentEnvelope(t *testing.T, origin contracts.WorldlineID) contracts.Envelope {
	return buildEnvelope(t, origin, contracts.EnvelopeBody{Intent: &contracts.IntentPayload{Goal: "send message"}}, contracts.ResonanceIntent)
}

func commitmentEnvelope(t *testing.T, origin contracts.WorldlineID) contracts.Envelope {
	c := &contracts.Commitment{Declaring: origin, Domain: contracts.DomainCommunication, Reversible: contracts.FullyReversible()}
	return buildEnvelope(t, origin, contracts.EnvelopeBody{Commitment: c}, contracts.ResonanceCommitment)
}

func consequenceEnvelope(t *testing.T, origin contracts.WorldlineID) contracts.Envelope {
	p := &contracts.ConsequencePayload{ExecutedBy: origin}
	return buildEnvelope(t, origin, contracts.EnvelopeBody{Consequence: p}, contracts.ResonanceConsequence)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRoute_MeaningRoutesToCognition(t *testing.T) {
	r := NewRouter(1).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	decision := r.Route(meaningEnvelope(t, "wl-A"))
	assert.Equal(t, DecisionDeliverToCognition, decision.Kind)
	assert.Equal(t, []contracts.WorldlineID{"wl-A"}, decision.Destinations)
}

func TestRoute_IntentRoutesToCognition(t *testing.T) {
	r := NewRouter(1).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	decision := r.Route(intentEnvelope(t, "wl-A"))
	assert.Equal(t, DecisionDeliverToCognition, decision.Kind)
}

func TestRoute_CommitmentRoutesToGate(t *testing.T) {
	r := NewRouter(1).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	decision := r.Route(commitmentEnvelope(t, "wl-A"))
	assert.Equal(t, DecisionRouteToGate, decision.Kind)
}

func TestRoute_ConsequenceRoutesToObserverWithNoExecutionLayerBound(t *testing.T) {
	r := NewRouter(1).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	decision := r.Route(consequenceEnvelope(t, "wl-A"))
	assert.Equal(t, DecisionDeliverAsConsequence, decision.Kind)
	assert.Equal(t, contracts.WorldlineID("wl-A"), decision.ConsequenceOrigin)
}

func TestRoute_ConsequenceRejectedFromUnregisteredOrigin(t *testing.T) {
	layer := stubExecutionLayer{registered: map[contracts.WorldlineID]bool{}}
	r := NewRouter(1).WithExecutionLayer(layer).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	decision := r.Route(consequenceEnvelope(t, "wl-A"))
	assert.Equal(t, DecisionReject, decision.Kind)
	assert.Equal(t, RejectionInvalidConsequenceOrigin, decision.RejectionReason)
}

func TestRoute_ConsequenceAcceptedFromRegisteredOrigin(t *testing.T) {
	layer := stubExecutionLayer{registered: map[contracts.WorldlineID]bool{"wl-A": true}}
	r := NewRouter(1).WithExecutionLayer(layer).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	decision := r.Route(consequenceEnvelope(t, "wl-A"))
	assert.Equal(t, DecisionDeliverAsConsequence, decision.Kind)
}

func TestRoute_TamperedEnvelopeQuarantined(t *testing.T) {
	r := NewRouter(1).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	env := meaningEnvelope(t, "wl-A")
	env.Body.Meaning.Content = "TAMPERED"
	decision := r.Route(env)
	assert.Equal(t, DecisionQuarantine, decision.Kind)
}

func TestRoute_TypeMismatchRejected(t *testing.T) {
	r := NewRouter(1).WithClock(fixedClock(time.UnixMilli(1_000_000)))
	env := meaningEnvelope(t, "wl-A")
	env.Header.Resonance = contracts.ResonanceCommitment
	hash, err := canonicalize.DomainHash(canonicalize.EnvelopeIntegrityDomain, env)
	require.NoError(t, err)
	env.Integrity.Hash = hash

	decision := r.Route(env)
	assert.Equal(t, DecisionReject, decision.Kind)
	assert.Equal(t, RejectionTypeMismatch, decision.RejectionReason)
}

func TestRoute_ExpiredEnvelopeDetected(t *testing.T) {
	r := NewRouter(1).WithClock(fixedClock(time.UnixMilli(2_000_000)))
	env := meaningEnvelope(t, "wl-A")
	decision := r.Route(env)
	assert.Equal(t, DecisionExpired, decision.Kind)
}

func TestValidateNonEscalation_SameTypeOK(t *testing.T) {
	r := NewRouter(1)
	err := r.ValidateNonEscalation(contracts.ResonanceMeaning, contracts.ResonanceMeaning, "wl-A", contracts.NewEventID())
	assert.NoError(t, err)
}

func TestValidateNonEscalation_ImplicitPromotionRejected(t *testing.T) {
	r := NewRouter(1)
	err := r.ValidateNonEscalation(contracts.ResonanceMeaning, contracts.ResonanceIntent, "wl-A", contracts.NewEventID())
	require.Error(t, err)
	kerr, ok := err.(*contracts.KernelError)
	require.True(t, ok)
	assert.Equal(t, contracts.KindEscalationViolation, kerr.Kind)
}

func TestValidateNonEscalation_DemotionAlsoRejected(t *testing.T) {
	r := NewRouter(1)
	err := r.ValidateNonEscalation(contracts.ResonanceCommitment, contracts.ResonanceMeaning, "wl-A", contracts.NewEventID())
	require.Error(t, err)
}

func TestValidateNonEscalation_ViolationsAreLogged(t *testing.T) {
	r := NewRouter(1)
	assert.Empty(t, r.EscalationLog())

	_ = r.ValidateNonEscalation(contracts.ResonanceMeaning, contracts.ResonanceCommitment, "wl-A", contracts.NewEventID())

	log := r.EscalationLog()
	require.Len(t, log, 1)
	assert.Equal(t, contracts.ResonanceMeaning, log[0].DeclaredType)
	assert.Equal(t, contracts.ResonanceCommitment, log[0].AttemptedType)
}
