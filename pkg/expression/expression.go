// Package expression compiles and evaluates the expressions used in flow
// definitions: transition criteria, dynamic targets, evaluate/set actions and
// attribute mappings. Expressions use the expr language
// (https://expr-lang.org) and are compiled once, when a flow is built.
package expression

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expression is a compiled expression. It is immutable and safe for concurrent use.
type Expression struct {
	source  string
	program *vm.Program
}

// Parse compiles an expression producing any value.
// Unknown identifiers evaluate to nil instead of failing, since scopes are dynamic.
func Parse(source string) (*Expression, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", source, err)
	}
	return &Expression{source: source, program: program}, nil
}

// ParseBool compiles an expression that must produce a boolean.
func ParseBool(source string) (*Expression, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid boolean expression %q: %w", source, err)
	}
	return &Expression{source: source, program: program}, nil
}

// MustParse is like Parse but panics on error. Meant for package level variables and tests.
func MustParse(source string) *Expression {
	e, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval runs the expression against env.
func (e *Expression) Eval(env map[string]any) (any, error) {
	out, err := vm.Run(e.program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", e.source, err)
	}
	return out, nil
}

// EvalBool runs the expression and asserts a boolean result.
func (e *Expression) EvalBool(env map[string]any) (bool, error) {
	out, err := e.Eval(env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", e.source, out)
	}
	return b, nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}
