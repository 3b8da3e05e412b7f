package runtime

import (
	"github.com/aretw0/webflow/pkg/domain"
)

// ExecutionSnapshot is the restorable state of a paused execution. The
// conversation scope is not part of it; the repository stores that once per conversation.
type ExecutionSnapshot struct {
	FlowID     string
	Flash      domain.Attributes
	Attributes domain.Attributes
	Sessions   []SessionSnapshot
}

// SessionSnapshot is the restorable state of one flow session.
type SessionSnapshot struct {
	FlowID    string
	StateID   string
	Scope     domain.Attributes
	ViewScope domain.Attributes
}

// Snapshot captures the execution. Scope maps are copied one level deep.
func (e *Execution) Snapshot() *ExecutionSnapshot {
	snap := &ExecutionSnapshot{
		FlowID:     e.flow.ID(),
		Flash:      e.flash.Clone(),
		Attributes: e.attributes.Clone(),
		Sessions:   make([]SessionSnapshot, 0, len(e.sessions)),
	}
	for _, s := range e.sessions {
		ss := SessionSnapshot{
			FlowID:    s.flow.ID(),
			Scope:     s.scope.Clone(),
			ViewScope: s.viewScope.Clone(),
		}
		if s.state != nil {
			ss.StateID = s.state.ID()
		}
		snap.Sessions = append(snap.Sessions, ss)
	}
	return snap
}
