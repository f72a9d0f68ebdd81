package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Category is the engine-level reading of an adjudication disposition.
type Category string

const (
	CategoryApproved Category = "approved"
	CategoryDenied   Category = "denied"
	CategoryQueued   Category = "queued"
	CategoryUnknown  Category = "unknown"
)

// Payer disposition vocabularies differ; the defaults cover the common
// terms and deployments override them per payer in config.
const (
	DefaultQueuedExpr   = `outcome == "queued" || disposition in ["queued", "pended", "deferred"]`
	DefaultApprovedExpr = `disposition in ["approved", "accepted", "paid"] || (outcome == "complete" && approved_amount > 0.0 && denied_amount == 0.0)`
	DefaultDeniedExpr   = `disposition in ["denied", "rejected", "not-approved"]`
)

// Classifier evaluates compiled CEL expressions against an adjudication
// result. Expressions are compiled once at construction.
type Classifier struct {
	env      *cel.Env
	queued   cel.Program
	approved cel.Program
	denied   cel.Program
}

// NewClassifier compiles the three category expressions; empty expressions
// fall back to the defaults.
func NewClassifier(queuedExpr, approvedExpr, deniedExpr string) (*Classifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("outcome", cel.StringType),
		cel.Variable("disposition", cel.StringType),
		cel.Variable("approved_amount", cel.DoubleType),
		cel.Variable("denied_amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	c := &Classifier{env: env}

	if c.queued, err = c.compile(orDefault(queuedExpr, DefaultQueuedExpr)); err != nil {
		return nil, err
	}
	if c.approved, err = c.compile(orDefault(approvedExpr, DefaultApprovedExpr)); err != nil {
		return nil, err
	}
	if c.denied, err = c.compile(orDefault(deniedExpr, DefaultDeniedExpr)); err != nil {
		return nil, err
	}

	return c, nil
}

func orDefault(expr, def string) string {
	if expr == "" {
		return def
	}
	return expr
}

func (c *Classifier) compile(expression string) (cel.Program, error) {
	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("disposition expression must return bool, got %v", ast.OutputType())
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

// Result is the adjudication outcome fed into classification.
type Result struct {
	Kind           string
	Outcome        string
	Disposition    string
	ApprovedAmount float64
	DeniedAmount   float64
}

// Classify reads the result against the queued, approved and denied
// expressions, in that order. Queued wins over the terminal categories so a
// deferred outcome is never mistaken for an adjudication.
func (c *Classifier) Classify(ctx context.Context, r Result) (Category, error) {
	vars := map[string]interface{}{
		"kind":            r.Kind,
		"outcome":         r.Outcome,
		"disposition":     r.Disposition,
		"approved_amount": r.ApprovedAmount,
		"denied_amount":   r.DeniedAmount,
	}

	for _, step := range []struct {
		program  cel.Program
		category Category
	}{
		{c.queued, CategoryQueued},
		{c.approved, CategoryApproved},
		{c.denied, CategoryDenied},
	} {
		matched, err := c.eval(ctx, step.program, vars)
		if err != nil {
			return CategoryUnknown, err
		}
		if matched {
			return step.category, nil
		}
	}

	return CategoryUnknown, nil
}

func (c *Classifier) eval(ctx context.Context, program cel.Program, vars map[string]interface{}) (bool, error) {
	result, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
