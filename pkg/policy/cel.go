package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"
)

// celEnv is the shared CEL environment every CELExpression condition
// compiles against: a flat view of the fields an operator is most likely
// to want to branch on.
var celEnv *cel.Env

func init() {
	var err error
	celEnv, err = cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("domain", types.StringType),
			decls.NewVariable("risk_class", types.StringType),
			decls.NewVariable("reversibility", types.StringType),
			decls.NewVariable("target_count", types.IntType),
		),
	)
	if err != nil {
		panic(fmt.Sprintf("policy: building CEL environment: %v", err))
	}
}

// CELExpression is the escape hatch beyond the built-in condition algebra:
// an arbitrary CEL boolean expression over {domain, risk_class,
// reversibility, target_count}. Compiled once by NewCELExpression; Matches
// reuses the compiled program so repeated evaluations don't re-parse the
// source.
type CELExpression struct {
	Source  string
	program cel.Program
}

// NewCELExpression compiles source against the shared policy CEL
// environment.
func NewCELExpression(source string) (*CELExpression, error) {
	ast, issues := celEnv.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compiling CEL condition %q: %w", source, issues.Err())
	}
	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy: building CEL program for %q: %w", source, err)
	}
	return &CELExpression{Source: source, program: prg}, nil
}

// Matches evaluates the compiled expression. A CEL evaluation error is
// treated as non-match (fail-closed: a broken expression never grants a
// condition it wasn't proven to grant).
func (c *CELExpression) Matches(ctx EvalContext) bool {
	if c.program == nil {
		return false
	}
	out, _, err := c.program.Eval(map[string]interface{}{
		"domain":        string(ctx.Commitment.Domain),
		"risk_class":    ctx.RiskClass.String(),
		"reversibility": string(ctx.Commitment.Reversible.Kind),
		"target_count":  int64(len(ctx.Commitment.Targets)),
	})
	if err != nil {
		return false
	}
	allowed, ok := out.Value().(bool)
	return ok && allowed
}

var _ Condition = (*CELExpression)(nil)
