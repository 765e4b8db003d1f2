// Package router enforces resonance-type routing constraints on envelopes
// moving between worldlines and the core.
//
// Routing rules:
//   - MEANING: freely routable within cognition, never reaches execution.
//   - INTENT: routable for negotiation, non-executable.
//   - COMMITMENT: must route through the Gate, immutable once declared.
//   - CONSEQUENCE: emitted only by a registered execution layer.
package router

import (
	"sync"
	"time"

	"github.com/mapleaiorg/kernel/pkg/canonicalize"
	"github.com/mapleaiorg/kernel/pkg/contracts"
)

// DecisionKind tags which routing outcome Route returned.
type DecisionKind string

const (
	DecisionDeliverToCognition   DecisionKind = "DELIVER_TO_COGNITION"
	DecisionRouteToGate          DecisionKind = "ROUTE_TO_GATE"
	DecisionDeliverAsConsequence DecisionKind = "DELIVER_AS_CONSEQUENCE"
	DecisionExpired              DecisionKind = "EXPIRED"
	DecisionQuarantine           DecisionKind = "QUARANTINE"
	DecisionReject               DecisionKind = "REJECT"
)

// RejectionReason identifies why Route returned DecisionReject.
type RejectionReason string

const (
	RejectionTypeMismatch             RejectionReason = "TYPE_MISMATCH"
	RejectionInvalidConsequenceOrigin RejectionReason = "INVALID_CONSEQUENCE_ORIGIN"
)

// RouteDecision is the outcome of routing one envelope. Exactly the fields
// relevant to Kind are populated.
type RouteDecision struct {
	Kind DecisionKind

	// DecisionDeliverToCognition
	Destinations []contracts.WorldlineID

	// DecisionDeliverAsConsequence
	ConsequenceOrigin contracts.WorldlineID

	// DecisionQuarantine
	QuarantineReason string

	// DecisionReject
	RejectionReason RejectionReason
	DeclaredType    contracts.ResonanceType
	ActualType      contracts.ResonanceType
}

// ExecutionLayer lets the router verify that a CONSEQUENCE envelope's
// origin is a registered execution-layer worldline. A nil ExecutionLayer
// disables the check (any origin is accepted).
type ExecutionLayer interface {
	IsExecutionOrigin(worldline contracts.WorldlineID) bool
}

// EscalationRecord is an append-only log entry written whenever
// ValidateNonEscalation rejects an implicit type transition.
type EscalationRecord struct {
	EnvelopeID    contracts.EventID
	Origin        contracts.WorldlineID
	DeclaredType  contracts.ResonanceType
	AttemptedType contracts.ResonanceType
	Anchor        contracts.TemporalAnchor
}

// Router is the MRP router: it enforces envelope TTL, integrity, and
// type-consistency before dispatching by resonance type, and it is the
// sole authority for the non-escalation invariant.
type Router struct {
	mu sync.Mutex

	executionLayer ExecutionLayer
	escalationLog  []EscalationRecord
	nodeID         uint16
	clock          func() time.Time
}

// NewRouter builds a router with no execution layer bound; CONSEQUENCE
// envelopes are then accepted from any origin.
func NewRouter(nodeID uint16) *Router {
	return &Router{nodeID: nodeID, clock: time.Now}
}

// WithExecutionLayer binds an execution layer for CONSEQUENCE origin
// validation.
func (r *Router) WithExecutionLayer(layer ExecutionLayer) *Router {
	r.executionLayer = layer
	return r
}

// WithClock overrides the clock used to timestamp escalation records, for
// deterministic testing.
func (r *Router) WithClock(clock func() time.Time) *Router {
	r.clock = clock
	return r
}

// Route is the router's main entry point. It performs, in order: TTL
// check, integrity verification, type-consistency check, then dispatches
// by the envelope's declared resonance type.
func (r *Router) Route(envelope contracts.Envelope) RouteDecision {
	if r.clock().After(envelope.ExpiresAt()) {
		return RouteDecision{Kind: DecisionExpired}
	}

	if !r.verifyIntegrity(envelope) {
		return RouteDecision{Kind: DecisionQuarantine, QuarantineReason: "integrity verification failed"}
	}

	actual, ok := envelope.Body.Variant()
	if !ok || actual != envelope.Header.Resonance {
		return RouteDecision{
			Kind:            DecisionReject,
			RejectionReason: RejectionTypeMismatch,
			DeclaredType:    envelope.Header.Resonance,
			ActualType:      actual,
		}
	}

	switch envelope.Header.Resonance {
	case contracts.ResonanceMeaning, contracts.ResonanceIntent:
		return RouteDecision{Kind: DecisionDeliverToCognition, Destinations: r.resolveCognitionDestinations(envelope)}
	case contracts.ResonanceCommitment:
		return RouteDecision{Kind: DecisionRouteToGate}
	case contracts.ResonanceConsequence:
		origin := envelope.Header.Origin
		if r.executionLayer != nil && !r.executionLayer.IsExecutionOrigin(origin) {
			return RouteDecision{Kind: DecisionReject, RejectionReason: RejectionInvalidConsequenceOrigin}
		}
		return RouteDecision{Kind: DecisionDeliverAsConsequence, ConsequenceOrigin: origin}
	default:
		return RouteDecision{
			Kind:            DecisionReject,
			RejectionReason: RejectionTypeMismatch,
			DeclaredType:    envelope.Header.Resonance,
		}
	}
}

// ValidateNonEscalation enforces the core invariant: no envelope may be
// transformed into a different resonance type than the one it declares.
// Same-type is always legal; every other transition, promotion or
// demotion alike, is an escalation violation and is logged for
// accountability.
func (r *Router) ValidateNonEscalation(from, to contracts.ResonanceType, origin contracts.WorldlineID, envelopeID contracts.EventID) error {
	if from == to {
		return nil
	}

	r.mu.Lock()
	r.escalationLog = append(r.escalationLog, EscalationRecord{
		EnvelopeID:    envelopeID,
		Origin:        origin,
		DeclaredType:  from,
		AttemptedType: to,
		Anchor:        contracts.TemporalAnchor{PhysicalMs: r.clock().UnixMilli(), NodeID: r.nodeID},
	})
	r.mu.Unlock()

	return contracts.NewKernelError(
		contracts.KindEscalationViolation,
		"implicit transition from "+string(from)+" to "+string(to)+" is not permitted",
	)
}

// EscalationLog returns a copy of every recorded non-escalation violation.
func (r *Router) EscalationLog() []EscalationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EscalationRecord, len(r.escalationLog))
	copy(out, r.escalationLog)
	return out
}

// verifyIntegrity recomputes the envelope's integrity hash over its
// header and body with the integrity field zeroed, and compares it
// against the carried hash.
func (r *Router) verifyIntegrity(envelope contracts.Envelope) bool {
	carried := envelope.Integrity.Hash
	envelope.Integrity = contracts.EnvelopeIntegrity{}
	expected, err := canonicalize.DomainHash(canonicalize.EnvelopeIntegrityDomain, envelope)
	if err != nil {
		return false
	}
	return expected == carried
}

func (r *Router) resolveCognitionDestinations(envelope contracts.Envelope) []contracts.WorldlineID {
	if envelope.Header.Destinations == nil || len(envelope.Header.Destinations.RequiredDestinations) == 0 {
		return []contracts.WorldlineID{envelope.Header.Origin}
	}
	out := make([]contracts.WorldlineID, len(envelope.Header.Destinations.RequiredDestinations))
	copy(out, envelope.Header.Destinations.RequiredDestinations)
	return out
}
