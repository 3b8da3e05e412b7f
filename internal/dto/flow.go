package dto

// FlowDefinition is the root of a flow document.
type FlowDefinition struct {
	ID         string           `json:"id" mapstructure:"id"`
	Start      string           `json:"start,omitempty" mapstructure:"start"`
	Input      []Mapping        `json:"input,omitempty" mapstructure:"input"`
	Output     []Mapping        `json:"output,omitempty" mapstructure:"output"`
	Vars       []Variable       `json:"vars,omitempty" mapstructure:"vars"`
	OnStart    []Action         `json:"on_start,omitempty" mapstructure:"on_start"`
	OnEnd      []Action         `json:"on_end,omitempty" mapstructure:"on_end"`
	Global     []Transition     `json:"global,omitempty" mapstructure:"global"`
	Catch      []Catch          `json:"catch,omitempty" mapstructure:"catch"`
	Inline     []FlowDefinition `json:"inline,omitempty" mapstructure:"inline"`
	Attributes map[string]any   `json:"attributes,omitempty" mapstructure:"attributes"`
	States     []State          `json:"states" mapstructure:"states"`
}

// State kinds.
const (
	KindAction   = "action"
	KindView     = "view"
	KindDecision = "decision"
	KindSubflow  = "subflow"
	KindEnd      = "end"
)

// State declares one state. Which fields apply depends on Type.
type State struct {
	ID   string `json:"id" mapstructure:"id"`
	Type string `json:"type,omitempty" mapstructure:"type"`

	OnEntry     []Action       `json:"on_entry,omitempty" mapstructure:"on_entry"`
	OnExit      []Action       `json:"on_exit,omitempty" mapstructure:"on_exit"`
	Transitions []Transition   `json:"transitions,omitempty" mapstructure:"transitions"`
	Catch       []Catch        `json:"catch,omitempty" mapstructure:"catch"`
	Attributes  map[string]any `json:"attributes,omitempty" mapstructure:"attributes"`

	// Action states.
	Actions []Action `json:"actions,omitempty" mapstructure:"actions"`

	// View states. View also names the final view of an end state.
	View     string            `json:"view,omitempty" mapstructure:"view"`
	Model    string            `json:"model,omitempty" mapstructure:"model"`
	Fields   []string          `json:"fields,omitempty" mapstructure:"fields"`
	Rules    map[string]string `json:"rules,omitempty" mapstructure:"rules"`
	Redirect *bool             `json:"redirect,omitempty" mapstructure:"redirect"`
	Popup    bool              `json:"popup,omitempty" mapstructure:"popup"`
	History  string            `json:"history,omitempty" mapstructure:"history"`
	OnRender []Action          `json:"on_render,omitempty" mapstructure:"on_render"`
	Vars     []Variable        `json:"vars,omitempty" mapstructure:"vars"`

	// Decision states.
	If   []Branch `json:"if,omitempty" mapstructure:"if"`
	Else string   `json:"else,omitempty" mapstructure:"else"`

	// Subflow states. Output is shared with end states.
	Flow   string    `json:"flow,omitempty" mapstructure:"flow"`
	Input  []Mapping `json:"input,omitempty" mapstructure:"input"`
	Output []Mapping `json:"output,omitempty" mapstructure:"output"`

	// End states.
	Location     string `json:"location,omitempty" mapstructure:"location"`
	FlowRedirect string `json:"flow_redirect,omitempty" mapstructure:"flow_redirect"`
}

// Kind returns the declared type, or infers it from the fields present.
// End states rendering a final view must declare their type.
func (s State) Kind() string {
	if s.Type != "" {
		return s.Type
	}
	switch {
	case len(s.Actions) > 0:
		return KindAction
	case len(s.If) > 0 || s.Else != "":
		return KindDecision
	case s.Flow != "":
		return KindSubflow
	case s.View != "":
		return KindView
	}
	return KindEnd
}

// Targets returns every state id the state may transition to.
func (s State) Targets() []string {
	var out []string
	for _, t := range s.Transitions {
		if t.To != "" {
			out = append(out, t.To)
		}
	}
	for _, b := range s.If {
		out = append(out, b.Then)
	}
	if s.Else != "" {
		out = append(out, s.Else)
	}
	for _, c := range s.Catch {
		out = append(out, c.To)
	}
	return out
}

// Transition declares an event driven edge. An empty To handles the event without a state change.
type Transition struct {
	On       string   `json:"on,omitempty" mapstructure:"on"`
	To       string   `json:"to,omitempty" mapstructure:"to"`
	If       string   `json:"if,omitempty" mapstructure:"if"`
	Bind     *bool    `json:"bind,omitempty" mapstructure:"bind"`
	Validate *bool    `json:"validate,omitempty" mapstructure:"validate"`
	History  string   `json:"history,omitempty" mapstructure:"history"`
	Actions  []Action `json:"actions,omitempty" mapstructure:"actions"`
}

// Branch is one condition of a decision state.
type Branch struct {
	Test string `json:"test" mapstructure:"test"`
	Then string `json:"then" mapstructure:"then"`
}

// Catch transitions to To when an error is raised. Error is "*" for any
// error, an error name (built-in or registered) or, failing both, a text the
// error message must contain.
type Catch struct {
	Error string `json:"error,omitempty" mapstructure:"error"`
	To    string `json:"to" mapstructure:"to"`
}

// Mapping copies From (an expression) to To (a path). A bare string in a
// document is shorthand for {from: x}.
type Mapping struct {
	From     string `json:"from" mapstructure:"from"`
	To       string `json:"to,omitempty" mapstructure:"to"`
	Type     string `json:"type,omitempty" mapstructure:"type"`
	Required bool   `json:"required,omitempty" mapstructure:"required"`
}

// Variable declares a flow or view variable, initialized either with a
// literal Value (copied for every execution) or by evaluating Expr.
type Variable struct {
	Name  string `json:"name" mapstructure:"name"`
	Value any    `json:"value,omitempty" mapstructure:"value"`
	Expr  string `json:"expr,omitempty" mapstructure:"expr"`
}

// Action declares one action. Exactly one of Call, Evaluate or Set is used.
// A bare string in a document is shorthand for {call: name}.
type Action struct {
	// Call names an action of the action registry. When Name is set, its
	// result events are qualified by Name.
	Call string `json:"call,omitempty" mapstructure:"call"`
	Name string `json:"name,omitempty" mapstructure:"name"`

	Evaluate   string `json:"evaluate,omitempty" mapstructure:"evaluate"`
	Result     string `json:"result,omitempty" mapstructure:"result"`
	ResultType string `json:"result_type,omitempty" mapstructure:"result_type"`

	Set   string `json:"set,omitempty" mapstructure:"set"`
	Value string `json:"value,omitempty" mapstructure:"value"`
	Type  string `json:"type,omitempty" mapstructure:"type"`
}
