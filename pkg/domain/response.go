package domain

// ResponseKind tells a host adapter what kind of response to produce.
type ResponseKind string

const (
	ResponseNone                   ResponseKind = ""
	ResponseRender                 ResponseKind = "render"
	ResponseFlowExecutionRedirect  ResponseKind = "flow_execution_redirect"
	ResponseFlowDefinitionRedirect ResponseKind = "flow_definition_redirect"
	ResponseExternalRedirect       ResponseKind = "external_redirect"
)

// Response is the response instruction recorded during a request.
type Response struct {
	Kind ResponseKind `json:"kind"`

	// ViewID and Model are set for ResponseRender.
	ViewID string     `json:"view,omitempty"`
	Model  Attributes `json:"model,omitempty"`

	// FlowID and Input are set for ResponseFlowDefinitionRedirect.
	FlowID string     `json:"flow,omitempty"`
	Input  Attributes `json:"input,omitempty"`

	// Location is set for ResponseExternalRedirect.
	Location string `json:"location,omitempty"`

	// Popup asks the host to show the redirect target in a popup window.
	Popup bool `json:"popup,omitempty"`
}

// IsRedirect reports whether the response is any kind of redirect.
func (r Response) IsRedirect() bool {
	switch r.Kind {
	case ResponseFlowExecutionRedirect, ResponseFlowDefinitionRedirect, ResponseExternalRedirect:
		return true
	}
	return false
}
