package runtime

import (
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// Session is one flow session on the execution stack.
type Session struct {
	flow      *engine.Flow
	state     engine.State
	scope     domain.Attributes
	viewScope domain.Attributes
}

func newSession(flow *engine.Flow) *Session {
	return &Session{
		flow:      flow,
		scope:     domain.NewAttributes(),
		viewScope: domain.NewAttributes(),
	}
}

// Definition returns the session's flow.
func (s *Session) Definition() *engine.Flow { return s.flow }

// State returns the current state, or nil before the start state is entered.
func (s *Session) State() engine.State { return s.state }

// Scope returns the flow scope.
func (s *Session) Scope() domain.Attributes { return s.scope }

// ViewScope returns the view scope of the current view state.
func (s *Session) ViewScope() domain.Attributes { return s.viewScope }
