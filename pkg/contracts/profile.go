package contracts

// ConsentLevel is ordered: Implicit < Notify < Explicit < Informed.
type ConsentLevel int

const (
	ConsentImplicit ConsentLevel = iota
	ConsentNotify
	ConsentExplicit
	ConsentInformed
)

// ReversibilityPreference governs how a profile treats irreversible
// commitments beyond the plain allow/deny bound.
type ReversibilityPreference string

const (
	ReversibilityNoPreference      ReversibilityPreference = "NONE"
	ReversibilityRequireReversible ReversibilityPreference = "REQUIRE_REVERSIBLE"
	ReversibilityPreferReversible  ReversibilityPreference = "PREFER_REVERSIBLE"
)

// HumanOversightLevel is the human-involvement dimension's single knob.
type HumanOversightLevel string

const (
	OversightFull               HumanOversightLevel = "FULL_OVERSIGHT"
	OversightApprovalForHighRisk HumanOversightLevel = "APPROVAL_FOR_HIGH_RISK"
	OversightNotification       HumanOversightLevel = "NOTIFICATION"
	OversightAuditOnly          HumanOversightLevel = "AUDIT_ONLY"
	OversightNone               HumanOversightLevel = "NONE"
)

// CouplingLimits bounds relational actions between worldlines.
type CouplingLimits struct {
	MaxInitialStrength float64      `json:"max_initial_strength"`
	MaxConcurrent      uint32       `json:"max_concurrent"`
	AllowAsymmetric    bool         `json:"allow_asymmetric"`
	ConsentRequired    ConsentLevel `json:"consent_required"`
}

// AttentionBudget bounds how much of a worldline's attention a single
// coupling may consume.
type AttentionBudget struct {
	MaxSingleCouplingFraction float64 `json:"max_single_coupling_fraction"`
}

// IntentResolutionRules constrains how a worldline's declared intents must
// resolve before they may be stabilized into commitments. Not checked by
// the profile enforcer's public operations today; carried as profile
// configuration for the cognition layer that resolves intents.
type IntentResolutionRules struct {
	RequireExplicitGoal bool    `json:"require_explicit_goal"`
	MinConfidence       float64 `json:"min_confidence"`
}

// CommitmentAuthority bounds which commitments a worldline may propose.
type CommitmentAuthority struct {
	AllowedDomains           []EffectDomain          `json:"allowed_domains"`
	MaxRiskClass             RiskClass               `json:"max_risk_class"`
	AllowIrreversible        bool                    `json:"allow_irreversible"`
	ReversibilityPreference  ReversibilityPreference `json:"reversibility_preference"`
}

// ConsequenceScope bounds the blast radius of a worldline's commitments.
type ConsequenceScope struct {
	MaxAffectedParties          *uint32 `json:"max_affected_parties,omitempty"`
	MaxConsequenceValue         *uint64 `json:"max_consequence_value,omitempty"`
	RequireHumanForHighRisk     bool    `json:"require_human_for_high_risk"`
	RequireHumanForIrreversible bool    `json:"require_human_for_irreversible"`
}

// HumanInvolvement is the profile's human-oversight dimension.
type HumanInvolvement struct {
	Level HumanOversightLevel `json:"level"`
}

// ProfileType names the canonical profile a worldline is classified under.
type ProfileType string

const (
	ProfileHuman       ProfileType = "HUMAN"
	ProfileAgent       ProfileType = "AGENT"
	ProfileFinancial   ProfileType = "FINANCIAL"
	ProfileWorld       ProfileType = "WORLD"
	ProfileCoordination ProfileType = "COORDINATION"
	ProfileCustom      ProfileType = "CUSTOM"
)

// Profile is the static, read-only-at-runtime authority envelope for a
// class of worldline (spec §3). Custom profiles fall through to Base's
// canonical values for any dimension they do not override.
type Profile struct {
	Name                  string                `json:"name"`
	Type                  ProfileType           `json:"type"`
	Base                  ProfileType           `json:"base,omitempty"`
	CouplingLimits        CouplingLimits        `json:"coupling_limits"`
	AttentionBudget       AttentionBudget       `json:"attention_budget"`
	IntentResolutionRules IntentResolutionRules `json:"intent_resolution_rules"`
	CommitmentAuthority   CommitmentAuthority   `json:"commitment_authority"`
	ConsequenceScope      ConsequenceScope      `json:"consequence_scope"`
	HumanInvolvement      HumanInvolvement      `json:"human_involvement"`
}

// Severity classifies how serious an enforcement violation is.
type Severity string

const (
	SeverityViolation Severity = "VIOLATION"
	SeverityCritical  Severity = "CRITICAL"
)

// Violation records one failed check, tagged with the profile dimension it
// failed against.
type Violation struct {
	Dimension   string   `json:"dimension"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// EnforcementOutcome is the shape returned by both of the profile
// enforcer's public check operations.
type EnforcementOutcome string

const (
	EnforcementPermitted             EnforcementOutcome = "PERMITTED"
	EnforcementPermittedWithWarnings EnforcementOutcome = "PERMITTED_WITH_WARNINGS"
	EnforcementDenied                EnforcementOutcome = "DENIED"
)

// EnforcementResult is the uniform result type check_coupling and
// check_commitment both return.
type EnforcementResult struct {
	Outcome    EnforcementOutcome `json:"outcome"`
	Warnings   []string           `json:"warnings,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Violations []Violation        `json:"violations,omitempty"`
}

// Denied reports whether the result is a denial.
func (r EnforcementResult) Denied() bool { return r.Outcome == EnforcementDenied }

// CouplingProposal describes a proposed relational action between
// worldlines, checked by ProfileEnforcer.CheckCoupling.
type CouplingProposal struct {
	Strength          float64      `json:"strength"`
	CurrentCouplings  uint32       `json:"current_couplings"`
	IsAsymmetric      bool         `json:"is_asymmetric"`
	ConsentProvided   ConsentLevel `json:"consent_provided"`
	AttentionFraction float64      `json:"attention_fraction"`
}
