package ports

import "github.com/aretw0/webflow/pkg/domain"

// ExternalContext is the calling environment of a single request.
// The engine reads request data through it and records the response instruction
// on it; the host adapter turns that instruction into an actual response.
type ExternalContext interface {
	// RequestParameters returns the (already decoded) request parameters.
	RequestParameters() domain.Attributes

	// RequestMap, SessionMap and ApplicationMap expose attribute maps of the host.
	RequestMap() domain.Attributes
	SessionMap() domain.Attributes
	ApplicationMap() domain.Attributes

	// IsAjaxRequest reports whether the request is a partial (asynchronous) one.
	IsAjaxRequest() bool

	// IsResponseAllowed reports whether the engine may produce a response in this request.
	IsResponseAllowed() bool

	// IsResponseComplete reports whether a response instruction has been recorded.
	IsResponseComplete() bool

	// RecordResponseComplete marks the response as handled.
	RecordResponseComplete()

	// RenderView asks the host to render an application view with a model.
	RenderView(viewID string, model domain.Attributes)

	// RequestFlowExecutionRedirect asks the host to redirect to the URL of the current flow execution.
	RequestFlowExecutionRedirect()

	// RequestFlowDefinitionRedirect asks the host to redirect to a new execution of a flow.
	RequestFlowDefinitionRedirect(flowID string, input domain.Attributes)

	// RequestExternalRedirect asks the host to redirect to an arbitrary location.
	RequestExternalRedirect(location string)

	// RequestRedirectInPopup asks the host to show the pending redirect target in a popup.
	RequestRedirectInPopup()

	// Response returns the recorded response instruction.
	Response() domain.Response
}
