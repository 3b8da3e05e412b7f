// Package external provides a ports.ExternalContext that records the response
// instruction in memory. Host adapters create one per request and translate
// the recorded domain.Response into their own protocol.
package external

import (
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
)

// Context is an in-memory ExternalContext.
type Context struct {
	mu          sync.Mutex
	params      domain.Attributes
	request     domain.Attributes
	session     domain.Attributes
	application domain.Attributes
	ajax        bool
	allowed     bool
	complete    bool
	response    domain.Response
}

var _ ports.ExternalContext = (*Context)(nil)

// Option configures a Context.
type Option func(*Context)

// WithAjax marks the request as a partial (asynchronous) request.
func WithAjax(ajax bool) Option {
	return func(c *Context) { c.ajax = ajax }
}

// WithResponseAllowed controls whether the engine may produce a response. Defaults to true.
func WithResponseAllowed(allowed bool) Option {
	return func(c *Context) { c.allowed = allowed }
}

// WithSessionMap shares a host session map with the context.
func WithSessionMap(m domain.Attributes) Option {
	return func(c *Context) { c.session = m }
}

// WithApplicationMap shares a host application map with the context.
func WithApplicationMap(m domain.Attributes) Option {
	return func(c *Context) { c.application = m }
}

// New creates a context for a request with the given parameters.
func New(params domain.Attributes, opts ...Option) *Context {
	if params == nil {
		params = domain.NewAttributes()
	}
	c := &Context{
		params:      params,
		request:     domain.NewAttributes(),
		session:     domain.NewAttributes(),
		application: domain.NewAttributes(),
		allowed:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) RequestParameters() domain.Attributes { return c.params }
func (c *Context) RequestMap() domain.Attributes        { return c.request }
func (c *Context) SessionMap() domain.Attributes        { return c.session }
func (c *Context) ApplicationMap() domain.Attributes    { return c.application }
func (c *Context) IsAjaxRequest() bool                  { return c.ajax }

func (c *Context) IsResponseAllowed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowed && !c.complete
}

func (c *Context) IsResponseComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}

func (c *Context) RecordResponseComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.complete = true
}

// RenderView records a render instruction. It does not complete the response;
// the view state does that after the render actions ran.
func (c *Context) RenderView(viewID string, model domain.Attributes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.response = domain.Response{Kind: domain.ResponseRender, ViewID: viewID, Model: model}
}

func (c *Context) RequestFlowExecutionRedirect() {
	c.record(domain.Response{Kind: domain.ResponseFlowExecutionRedirect})
}

func (c *Context) RequestFlowDefinitionRedirect(flowID string, input domain.Attributes) {
	c.record(domain.Response{Kind: domain.ResponseFlowDefinitionRedirect, FlowID: flowID, Input: input})
}

func (c *Context) RequestExternalRedirect(location string) {
	c.record(domain.Response{Kind: domain.ResponseExternalRedirect, Location: location})
}

func (c *Context) RequestRedirectInPopup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.response.Popup = true
}

func (c *Context) Response() domain.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response
}

// record stores a redirect instruction and completes the response.
func (c *Context) record(r domain.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.response = r
	c.complete = true
}
