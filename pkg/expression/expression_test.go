package expression_test

import (
	"testing"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpression_ScopeResolution(t *testing.T) {
	scopes := expression.Scopes{
		Request:      domain.Attributes{"name": "request"},
		Flash:        domain.Attributes{"name": "flash", "msg": "hi"},
		Flow:         domain.Attributes{"name": "flow", "booking": map[string]any{"nights": 3}},
		Conversation: domain.Attributes{"user": "keith"},
		Event:        &domain.Event{ID: "submit"},
	}
	env := scopes.Env()

	tests := []struct {
		expr string
		want any
	}{
		{"name", "request"},
		{"flowScope.name", "flow"},
		{"msg", "hi"},
		{"user", "keith"},
		{"booking.nights * 2", 6},
		{"currentEvent.id", "submit"},
		{"missing == nil", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := expression.Parse(tt.expr)
			require.NoError(t, err)
			got, err := e.Eval(env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpression_ParseErrors(t *testing.T) {
	_, err := expression.Parse("1 +")
	assert.Error(t, err)

	_, err = expression.ParseBool("'text'")
	assert.Error(t, err, "non boolean literal must be rejected at compile time")

	e, err := expression.ParseBool("count > 2")
	require.NoError(t, err)
	ok, err := e.EvalBool(map[string]any{"count": 3})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPath(t *testing.T) {
	p, err := expression.ParsePath("flowScope.booking.hotel")
	require.NoError(t, err)
	assert.Equal(t, expression.FlowScope, p.Scope)
	assert.Equal(t, []string{"booking", "hotel"}, p.Keys)
	assert.Equal(t, "flowScope.booking.hotel", p.String())

	flow := domain.NewAttributes()
	require.NoError(t, p.Assign(expression.Scopes{Flow: flow}, "Hilton"))
	assert.Equal(t, map[string]any{"hotel": "Hilton"}, flow["booking"])

	require.NoError(t, expression.MustParsePath("flowScope.booking.nights").Assign(expression.Scopes{Flow: flow}, 2))
	assert.Equal(t, map[string]any{"hotel": "Hilton", "nights": 2}, flow["booking"])

	bare, err := expression.ParsePath("total")
	require.NoError(t, err)
	assert.Equal(t, "", bare.Scope)
	assert.Equal(t, expression.FlowScope, bare.WithDefaultScope(expression.FlowScope).Scope)

	flow["scalar"] = 1
	err = expression.MustParsePath("flowScope.scalar.x").Assign(expression.Scopes{Flow: flow}, 1)
	assert.Error(t, err)

	err = bare.Assign(expression.Scopes{Flow: flow}, 1)
	assert.Error(t, err, "paths without scope cannot be assigned through Scopes")

	_, err = expression.ParsePath("flowScope")
	assert.Error(t, err)
	_, err = expression.ParsePath("a..b")
	assert.Error(t, err)
}
