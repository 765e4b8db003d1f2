package contracts

// EffectDomain classifies the kind of effect a commitment proposes.
type EffectDomain string

const (
	DomainCommunication  EffectDomain = "COMMUNICATION"
	DomainDataMutation   EffectDomain = "DATA_MUTATION"
	DomainFinancial      EffectDomain = "FINANCIAL"
	DomainInfrastructure EffectDomain = "INFRASTRUCTURE"
	DomainGovernance     EffectDomain = "GOVERNANCE"
)

// ReversibilityKind tags the Reversibility union.
type ReversibilityKind string

const (
	ReversibilityFullyReversible ReversibilityKind = "FULLY_REVERSIBLE"
	ReversibilityTimeWindow      ReversibilityKind = "TIME_WINDOW"
	ReversibilityConditional     ReversibilityKind = "CONDITIONAL"
	ReversibilityIrreversible    ReversibilityKind = "IRREVERSIBLE"
)

// Reversibility describes how (and whether) a commitment's effect can be
// undone. WindowMs is only meaningful when Kind is ReversibilityTimeWindow.
type Reversibility struct {
	Kind     ReversibilityKind `json:"kind"`
	WindowMs int64             `json:"window_ms,omitempty"`
}

func FullyReversible() Reversibility { return Reversibility{Kind: ReversibilityFullyReversible} }
func Irreversible() Reversibility    { return Reversibility{Kind: ReversibilityIrreversible} }
func Conditional() Reversibility     { return Reversibility{Kind: ReversibilityConditional} }
func TimeWindow(ms int64) Reversibility {
	return Reversibility{Kind: ReversibilityTimeWindow, WindowMs: ms}
}

// RiskClass is an ordered severity classification.
type RiskClass int

const (
	RiskLow RiskClass = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskClass) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Score maps a risk class to the numeric score the original source's
// decision cards carry alongside the qualitative class.
func (r RiskClass) Score() float64 {
	switch r {
	case RiskLow:
		return 0.1
	case RiskMedium:
		return 0.4
	case RiskHigh:
		return 0.7
	case RiskCritical:
		return 0.95
	default:
		return 0
	}
}

// Commitment describes a proposed effect on the world (spec §3, Invariant
// C1: Declaring must be non-empty; Targets may be empty but not nil-invalid).
type Commitment struct {
	ID         CommitmentID  `json:"commitment_id"`
	Declaring  WorldlineID   `json:"declaring_worldline_id"`
	Domain     EffectDomain  `json:"effect_domain"`
	Reversible Reversibility `json:"reversibility"`
	Targets    []WorldlineID `json:"target_worldline_set"`
	Capabilities []string    `json:"capability_set,omitempty"`
	Evidence   []string      `json:"evidence_references,omitempty"`
	Nonce      string        `json:"nonce"`

	// Fields consulted by the profile enforcer and policy engine. A zero
	// AffectedParties/ConsequenceValue means "not provided" for the
	// corresponding optional profile bound.
	AffectedParties   uint32  `json:"affected_parties,omitempty"`
	ConsequenceValue  *uint64 `json:"consequence_value,omitempty"`
	HasHumanApproval  bool    `json:"has_human_approval,omitempty"`
}

// Validate enforces Invariant C1.
func (c Commitment) Validate() error {
	if c.Declaring == "" {
		return NewKernelError(KindInvalidInput, "commitment has no declaring worldline")
	}
	return nil
}

// CommitmentProposal is the view of a Commitment the profile enforcer
// checks: the raw commitment plus the risk class inferred from its
// reversibility (computed by the caller before profile enforcement runs,
// since the policy engine has not yet executed at that point in the Gate's
// algorithm).
type CommitmentProposal struct {
	Domain           EffectDomain  `json:"domain"`
	RiskClass        RiskClass     `json:"risk_class"`
	Reversible       Reversibility `json:"reversibility"`
	AffectedParties  uint32        `json:"affected_parties"`
	ConsequenceValue *uint64       `json:"consequence_value,omitempty"`
	HasHumanApproval bool          `json:"has_human_approval"`
}

// InferRiskClass implements the reversibility-to-risk-class mapping shared
// by the profile enforcer's default risk and the policy engine's
// RiskThreshold condition (spec §4.3 Risk inference).
func InferRiskClass(r Reversibility) RiskClass {
	switch r.Kind {
	case ReversibilityIrreversible:
		return RiskCritical
	case ReversibilityTimeWindow:
		if r.WindowMs < 60_000 {
			return RiskHigh
		}
		return RiskMedium
	case ReversibilityConditional:
		return RiskMedium
	case ReversibilityFullyReversible:
		return RiskLow
	default:
		return RiskLow
	}
}

// CommitmentState is a node in the commitment lifecycle (spec §3 Lifecycles).
type CommitmentState string

const (
	StateProposed      CommitmentState = "PROPOSED"
	StateApproved      CommitmentState = "APPROVED"
	StateDenied        CommitmentState = "DENIED"
	StatePendingReview CommitmentState = "PENDING_REVIEW"
	StateExecuting     CommitmentState = "EXECUTING"
	StateCompleted     CommitmentState = "COMPLETED"
	StateFailed        CommitmentState = "FAILED"
)

// legalCommitmentTransitions enumerates the only permitted state hops.
var legalCommitmentTransitions = map[CommitmentState][]CommitmentState{
	StateProposed:      {StateApproved, StateDenied, StatePendingReview},
	StatePendingReview: {StateApproved, StateDenied},
	StateApproved:      {StateExecuting},
	StateExecuting:     {StateCompleted, StateFailed},
}

// CanTransition reports whether from -> to is a legal lifecycle hop.
func CanTransition(from, to CommitmentState) bool {
	for _, allowed := range legalCommitmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OutcomeRecord is the execution-layer's report of what a commitment did.
type OutcomeRecord struct {
	Effects      []EffectSummary `json:"effects"`
	Proofs       []string        `json:"proofs,omitempty"`
	StateUpdates []StateUpdate   `json:"state_updates,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}

// EffectSummary describes one concrete effect an outcome produced.
type EffectSummary struct {
	Kind        string `json:"kind"`
	Target      string `json:"target"`
	Description string `json:"description"`
}

// StateUpdate is a single key/value mutation recorded as part of an
// outcome.
type StateUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
