package domain

// Event is something that happened during a request, such as a user pressing a
// button or an action returning a result.
type Event struct {
	// ID is the event identifier, e.g. "submit" or "success".
	ID string `json:"id"`

	// ActionName qualifies events signaled by a named action. A transition
	// registered for an unqualified id does not match a qualified event.
	ActionName string `json:"action,omitempty"`

	// Source describes who signaled the event (a state id, a flow id, a view id).
	Source string `json:"source,omitempty"`

	// Attributes carries event payload, e.g. subflow output.
	Attributes Attributes `json:"attributes,omitempty"`
}

// NewEvent creates an unqualified event.
func NewEvent(source, id string) *Event {
	return &Event{ID: id, Source: source, Attributes: NewAttributes()}
}

// QualifiedID returns "action.id" for events of named actions and the plain id otherwise.
func (e *Event) QualifiedID() string {
	if e.ActionName == "" {
		return e.ID
	}
	return e.ActionName + "." + e.ID
}

// Outcome is the result of a flow session that reached an end state.
type Outcome struct {
	ID     string     `json:"id"`
	Output Attributes `json:"output,omitempty"`
}
