// Package validator checks flow documents for broken links and unreachable
// states before they are compiled.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/webflow/internal/dto"
)

// Report collects the problems found in a flow document.
type Report struct {
	Errors   []string
	Warnings []string
}

// OK reports whether no errors were found. Warnings do not fail validation.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Err returns the errors as one error, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(r.Errors, "\n- "))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateFlow checks def and returns its errors, if any.
func ValidateFlow(def *dto.FlowDefinition, knownFlows ...string) error {
	return Inspect(def, knownFlows...).Err()
}

// Inspect crawls def from its start state. Dangling targets, duplicate ids and
// unknown subflows are errors; unreachable states are warnings. Subflows may
// name inline flows or any of knownFlows; with no knownFlows, external subflow
// references are not checked.
func Inspect(def *dto.FlowDefinition, knownFlows ...string) *Report {
	r := &Report{}
	inspect(r, def, "", knownFlows)
	return r
}

func inspect(r *Report, def *dto.FlowDefinition, prefix string, knownFlows []string) {
	name := prefix + def.ID
	if def.ID == "" {
		r.errorf("flow missing id")
		name = prefix + "<unnamed>"
	}
	if len(def.States) == 0 {
		r.errorf("flow '%s' has no states", name)
		return
	}

	states := make(map[string]dto.State, len(def.States))
	for _, s := range def.States {
		if s.ID == "" {
			r.errorf("flow '%s' has a state without id", name)
			continue
		}
		if _, dup := states[s.ID]; dup {
			r.errorf("duplicate state '%s' in flow '%s'", s.ID, name)
			continue
		}
		states[s.ID] = s
	}

	inline := make(map[string]bool, len(def.Inline))
	for _, sub := range def.Inline {
		inline[sub.ID] = true
	}
	known := make(map[string]bool, len(knownFlows))
	for _, id := range knownFlows {
		known[id] = true
	}

	start := def.Start
	if start == "" {
		start = def.States[0].ID
	}
	if _, ok := states[start]; !ok {
		r.errorf("start state '%s' not found in flow '%s'", start, name)
	}

	// Global and catch transitions may fire from any state.
	var roots []string
	for _, t := range def.Global {
		if t.To == "" {
			continue
		}
		if _, ok := states[t.To]; !ok {
			r.errorf("missing state '%s' targeted by global transition '%s' in flow '%s'", t.To, t.On, name)
			continue
		}
		roots = append(roots, t.To)
	}
	for _, c := range def.Catch {
		if _, ok := states[c.To]; !ok {
			r.errorf("missing state '%s' targeted by catch in flow '%s'", c.To, name)
			continue
		}
		roots = append(roots, c.To)
	}

	visited := make(map[string]bool, len(states))
	queue := append([]string{start}, roots...)
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		s, ok := states[currentID]
		if !ok {
			continue
		}
		checkState(r, s, name, inline, known)

		for _, target := range s.Targets() {
			if _, ok := states[target]; !ok {
				r.errorf("missing state '%s' targeted by '%s' in flow '%s'", target, s.ID, name)
				continue
			}
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var unreachable []string
	for id, s := range states {
		if !visited[id] {
			unreachable = append(unreachable, id)
			checkState(r, s, name, inline, known)
			for _, target := range s.Targets() {
				if _, ok := states[target]; !ok {
					r.errorf("missing state '%s' targeted by '%s' in flow '%s'", target, s.ID, name)
				}
			}
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		r.warnf("state '%s' is unreachable in flow '%s'", id, name)
	}

	for i := range def.Inline {
		inspect(r, &def.Inline[i], name+"/", knownFlows)
	}
}

func checkState(r *Report, s dto.State, flow string, inline, known map[string]bool) {
	switch s.Kind() {
	case dto.KindDecision:
		if len(s.Transitions) > 0 {
			r.errorf("decision state '%s' in flow '%s' declares transitions", s.ID, flow)
		}
		for _, b := range s.If {
			if strings.TrimSpace(b.Test) == "" {
				r.errorf("decision state '%s' in flow '%s' has a branch without test", s.ID, flow)
			}
		}
	case dto.KindSubflow:
		if s.Flow == "" {
			r.errorf("subflow state '%s' in flow '%s' names no flow", s.ID, flow)
		} else if len(known) > 0 && !inline[s.Flow] && !known[s.Flow] {
			r.errorf("unknown subflow '%s' in state '%s' of flow '%s'", s.Flow, s.ID, flow)
		}
	case dto.KindView:
		if len(s.Transitions) == 0 {
			r.warnf("view state '%s' in flow '%s' has no transitions", s.ID, flow)
		}
	case dto.KindAction:
		if len(s.Actions) == 0 {
			r.errorf("action state '%s' in flow '%s' has no actions", s.ID, flow)
		}
	}
}
