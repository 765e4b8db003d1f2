package policy

import "github.com/mapleaiorg/kernel/pkg/contracts"

// ActionKind tags the Action union.
type ActionKind string

const (
	ActionApprove            ActionKind = "APPROVE"
	ActionDeny               ActionKind = "DENY"
	ActionRequireHumanReview ActionKind = "REQUIRE_HUMAN_REVIEW"
	ActionRequireCoSignature ActionKind = "REQUIRE_CO_SIGNATURE"
	ActionSetRiskClass       ActionKind = "SET_RISK_CLASS"
)

// Action is what a matched policy does to the in-progress decision.
// Reason is used by Deny/RequireHumanReview; RiskClass is used by
// SetRiskClass.
type Action struct {
	Kind      ActionKind
	Reason    string
	RiskClass contracts.RiskClass
}

func Approve() Action            { return Action{Kind: ActionApprove} }
func Deny(reason string) Action  { return Action{Kind: ActionDeny, Reason: reason} }
func RequireHumanReview(reason string) Action {
	return Action{Kind: ActionRequireHumanReview, Reason: reason}
}
func RequireCoSignature() Action { return Action{Kind: ActionRequireCoSignature} }
func SetRiskClass(c contracts.RiskClass) Action {
	return Action{Kind: ActionSetRiskClass, RiskClass: c}
}

// Policy is one entry in the engine's ordered set (spec §4.3).
type Policy struct {
	ID            string
	Name          string
	Description   string
	Condition     Condition
	Action        Action
	Priority      int
	Constitutional bool
}
