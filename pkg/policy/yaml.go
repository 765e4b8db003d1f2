package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mapleaiorg/kernel/pkg/contracts"
)

// conditionSpec is the declarative, YAML-serializable shape of a
// Condition. Exactly one of the typed fields is populated, selected by
// Type.
type conditionSpec struct {
	Type         string          `yaml:"type"`
	Domains      []string        `yaml:"domains,omitempty"`
	RiskClass    string          `yaml:"risk_class,omitempty"`
	N            int             `yaml:"n,omitempty"`
	Expression   string          `yaml:"expression,omitempty"`
	Conditions   []conditionSpec `yaml:"conditions,omitempty"`
}

type policySpec struct {
	ID             string        `yaml:"id"`
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	Condition      conditionSpec `yaml:"condition"`
	Action         actionSpec    `yaml:"action"`
	Priority       int           `yaml:"priority"`
	Constitutional bool          `yaml:"constitutional"`
}

type actionSpec struct {
	Kind      string `yaml:"kind"`
	Reason    string `yaml:"reason,omitempty"`
	RiskClass string `yaml:"risk_class,omitempty"`
}

type policyPack struct {
	Policies []policySpec `yaml:"policies"`
}

func riskClassFromString(s string) (contracts.RiskClass, error) {
	switch s {
	case "LOW":
		return contracts.RiskLow, nil
	case "MEDIUM":
		return contracts.RiskMedium, nil
	case "HIGH":
		return contracts.RiskHigh, nil
	case "CRITICAL":
		return contracts.RiskCritical, nil
	default:
		return 0, fmt.Errorf("policy: unknown risk class %q", s)
	}
}

func buildCondition(spec conditionSpec) (Condition, error) {
	switch spec.Type {
	case "always":
		return Always{}, nil
	case "domain_match":
		domains := make([]contracts.EffectDomain, 0, len(spec.Domains))
		for _, d := range spec.Domains {
			domains = append(domains, contracts.EffectDomain(d))
		}
		return DomainMatch{Domains: domains}, nil
	case "risk_threshold":
		rc, err := riskClassFromString(spec.RiskClass)
		if err != nil {
			return nil, err
		}
		return RiskThreshold{Class: rc}, nil
	case "irreversible_only":
		return IrreversibleOnly{}, nil
	case "target_count_exceeds":
		return TargetCountExceeds{N: spec.N}, nil
	case "all":
		subs, err := buildConditions(spec.Conditions)
		if err != nil {
			return nil, err
		}
		return All{Conditions: subs}, nil
	case "any":
		subs, err := buildConditions(spec.Conditions)
		if err != nil {
			return nil, err
		}
		return Any{Conditions: subs}, nil
	case "cel":
		return NewCELExpression(spec.Expression)
	default:
		return nil, fmt.Errorf("policy: unknown condition type %q", spec.Type)
	}
}

func buildConditions(specs []conditionSpec) ([]Condition, error) {
	out := make([]Condition, 0, len(specs))
	for _, s := range specs {
		c, err := buildCondition(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func buildAction(spec actionSpec) (Action, error) {
	switch spec.Kind {
	case "approve":
		return Approve(), nil
	case "deny":
		return Deny(spec.Reason), nil
	case "require_human_review":
		return RequireHumanReview(spec.Reason), nil
	case "require_co_signature":
		return RequireCoSignature(), nil
	case "set_risk_class":
		rc, err := riskClassFromString(spec.RiskClass)
		if err != nil {
			return Action{}, err
		}
		return SetRiskClass(rc), nil
	default:
		return Action{}, fmt.Errorf("policy: unknown action kind %q", spec.Kind)
	}
}

// LoadPackYAML parses a YAML policy pack and adds every policy it defines
// to the engine via AddPolicy (so duplicate-id and re-sort semantics apply
// uniformly whether a policy arrives programmatically or from a pack).
func (e *Engine) LoadPackYAML(data []byte) error {
	var pack policyPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return contracts.Wrap(contracts.KindSerialization, "parsing policy pack", err)
	}
	for _, spec := range pack.Policies {
		cond, err := buildCondition(spec.Condition)
		if err != nil {
			return contracts.Wrap(contracts.KindInvalidInput, fmt.Sprintf("policy %q condition", spec.ID), err)
		}
		action, err := buildAction(spec.Action)
		if err != nil {
			return contracts.Wrap(contracts.KindInvalidInput, fmt.Sprintf("policy %q action", spec.ID), err)
		}
		if err := e.AddPolicy(Policy{
			ID:             spec.ID,
			Name:           spec.Name,
			Description:    spec.Description,
			Condition:      cond,
			Action:         action,
			Priority:       spec.Priority,
			Constitutional: spec.Constitutional,
		}); err != nil {
			return err
		}
	}
	return nil
}
