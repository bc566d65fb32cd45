package cel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"hookrelay/pkg/models"
)

// Evaluator compiles boolean CEL conditions over a notification event.
// Compiled programs are cached per expression.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("source_id", cel.StringType),
		cel.Variable("source_name", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("text", cel.StringType),
		cel.Variable("category_id", cel.StringType),
		cel.Variable("importance", cel.IntType),
		cel.Variable("is_summary", cel.BoolType),
		cel.Variable("has_image", cel.BoolType),
		cel.Variable("timestamp", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func (e *Evaluator) ValidateFilterExpression(expression string) error {
	_, err := e.compileFilter(expression)
	return err
}

// EvaluateFilter runs a boolean condition against ev.
func (e *Evaluator) EvaluateFilter(ctx context.Context, expression string, ev models.Event) (bool, error) {
	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	result, _, err := program.ContextEval(ctx, eventVars(ev))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	p, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := e.compileFilter(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = p
	e.mu.Unlock()
	return p, nil
}

func (e *Evaluator) compileFilter(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func eventVars(ev models.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":          ev.ID,
		"source_id":   ev.SourceID,
		"source_name": ev.SourceName,
		"title":       ev.Title,
		"text":        ev.Text,
		"category_id": ev.CategoryID,
		"importance":  int64(ev.Importance),
		"is_summary":  ev.IsSummary,
		"has_image":   ev.Image != nil,
		"timestamp":   ev.Timestamp,
	}
}
