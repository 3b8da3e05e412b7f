package mapping

import (
	"fmt"
	"strings"
)

// ResultKind classifies the outcome of a single mapping.
type ResultKind int

const (
	Success ResultKind = iota
	RequiredMissing
	TypeConversionError
	EvaluationError
	AssignmentError
)

func (k ResultKind) String() string {
	switch k {
	case Success:
		return "success"
	case RequiredMissing:
		return "required"
	case TypeConversionError:
		return "typeConversion"
	case EvaluationError:
		return "evaluation"
	case AssignmentError:
		return "assignment"
	}
	return "unknown"
}

// Result is the outcome of one mapping.
type Result struct {
	Mapping  string
	Kind     ResultKind
	Original any
	Value    any
	Err      error
}

// Results collects the outcome of every mapping in a Map call.
type Results struct {
	All []Result
}

func (r *Results) add(res Result) {
	r.All = append(r.All, res)
}

// HasErrors reports whether any mapping failed.
func (r *Results) HasErrors() bool {
	for _, res := range r.All {
		if res.Kind != Success {
			return true
		}
	}
	return false
}

// Errors returns the failed mappings.
func (r *Results) Errors() []Result {
	var errs []Result
	for _, res := range r.All {
		if res.Kind != Success {
			errs = append(errs, res)
		}
	}
	return errs
}

// Err returns an *Error when any mapping failed and nil otherwise.
func (r *Results) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return &Error{Results: r}
}

// Error reports field level mapping failures.
type Error struct {
	Results *Results
}

func (e *Error) Error() string {
	errs := e.Results.Errors()
	parts := make([]string, 0, len(errs))
	for _, res := range errs {
		parts = append(parts, fmt.Sprintf("%s (%s): %v", res.Mapping, res.Kind, res.Err))
	}
	return fmt.Sprintf("%d mapping error(s): %s", len(errs), strings.Join(parts, "; "))
}
