package external_test

import (
	"testing"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/stretchr/testify/assert"
)

func TestContext_Defaults(t *testing.T) {
	c := external.New(nil)

	assert.NotNil(t, c.RequestParameters())
	assert.True(t, c.IsResponseAllowed())
	assert.False(t, c.IsResponseComplete())
	assert.False(t, c.IsAjaxRequest())
	assert.Equal(t, domain.ResponseNone, c.Response().Kind)
}

func TestContext_RenderDoesNotComplete(t *testing.T) {
	c := external.New(domain.Attributes{"q": "1"})
	c.RenderView("form", domain.Attributes{"name": "x"})

	assert.False(t, c.IsResponseComplete())
	assert.Equal(t, "form", c.Response().ViewID)

	c.RecordResponseComplete()
	assert.True(t, c.IsResponseComplete())
	assert.False(t, c.IsResponseAllowed())
}

func TestContext_RedirectsComplete(t *testing.T) {
	c := external.New(nil)
	c.RequestFlowExecutionRedirect()
	c.RequestRedirectInPopup()

	r := c.Response()
	assert.True(t, c.IsResponseComplete())
	assert.Equal(t, domain.ResponseFlowExecutionRedirect, r.Kind)
	assert.True(t, r.Popup)
	assert.True(t, r.IsRedirect())

	c = external.New(nil)
	c.RequestFlowDefinitionRedirect("other", domain.Attributes{"a": 1})
	assert.Equal(t, "other", c.Response().FlowID)

	c = external.New(nil)
	c.RequestExternalRedirect("https://example.com")
	assert.Equal(t, "https://example.com", c.Response().Location)
}

func TestContext_Options(t *testing.T) {
	session := domain.NewAttributes()
	c := external.New(nil, external.WithAjax(true), external.WithResponseAllowed(false), external.WithSessionMap(session))

	assert.True(t, c.IsAjaxRequest())
	assert.False(t, c.IsResponseAllowed())
	c.SessionMap().Put("user", "u1")
	assert.Equal(t, "u1", session.Get("user"))
}
