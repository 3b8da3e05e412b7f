package expression

import (
	"github.com/aretw0/webflow/pkg/domain"
)

// Scope names usable as the first segment of an expression or a target path.
const (
	RequestScope      = "requestScope"
	FlashScope        = "flashScope"
	ViewScope         = "viewScope"
	FlowScope         = "flowScope"
	ConversationScope = "conversationScope"
	RequestParameters = "requestParameters"
	CurrentEvent      = "currentEvent"
	FlowExecutionKey  = "flowExecutionKey"
)

// Scopes holds the attribute maps visible to an expression.
// A nil map means the scope is unavailable.
type Scopes struct {
	Request      domain.Attributes
	Flash        domain.Attributes
	View         domain.Attributes
	Flow         domain.Attributes
	Conversation domain.Attributes
	Parameters   domain.Attributes
	Event        *domain.Event
	Key          string
}

// Env builds an evaluation environment. Every scope is reachable by name and,
// in addition, bare identifiers resolve through the scopes in the order
// request, flash, view, flow, conversation.
func (s Scopes) Env() map[string]any {
	env := make(map[string]any)
	for _, m := range []domain.Attributes{s.Conversation, s.Flow, s.View, s.Flash, s.Request} {
		for k, v := range m {
			env[k] = v
		}
	}
	env[RequestScope] = map[string]any(s.Request)
	env[FlashScope] = map[string]any(s.Flash)
	env[ViewScope] = map[string]any(s.View)
	env[FlowScope] = map[string]any(s.Flow)
	env[ConversationScope] = map[string]any(s.Conversation)
	env[RequestParameters] = map[string]any(s.Parameters)
	env[FlowExecutionKey] = s.Key
	if s.Event != nil {
		env[CurrentEvent] = map[string]any{
			"id":         s.Event.ID,
			"action":     s.Event.ActionName,
			"source":     s.Event.Source,
			"attributes": map[string]any(s.Event.Attributes),
		}
	}
	return env
}

// Scope returns the writable map registered under name.
func (s Scopes) Scope(name string) (domain.Attributes, bool) {
	var m domain.Attributes
	switch name {
	case RequestScope:
		m = s.Request
	case FlashScope:
		m = s.Flash
	case ViewScope:
		m = s.View
	case FlowScope:
		m = s.Flow
	case ConversationScope:
		m = s.Conversation
	}
	return m, m != nil
}
