package dsl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/webflow/internal/runtime"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := dsl.New("greeting").
		Input(dsl.M{From: "name"}).
		Output(dsl.M{From: "'Hello, ' + name", To: "greeting"})

	b.View("ask", "askView").On("submit", "done")
	b.End("done")

	flow, err := b.Build()
	require.NoError(t, err)
	assert.True(t, flow.Frozen())
	assert.Equal(t, "ask", flow.StartState().ID())

	s, ok := flow.State("ask")
	require.True(t, ok)
	assert.Equal(t, "view", engine.Kind(s))

	exec := runtime.NewFactory().CreateFlowExecution(flow, nil)
	ctx := context.Background()
	require.NoError(t, exec.Start(ctx, domain.Attributes{"name": "Ada"}, nil))
	require.NoError(t, exec.Resume(ctx, external.New(domain.Attributes{domain.ParamEventID: "submit"})))
	require.True(t, exec.HasEnded())
	assert.Equal(t, "Hello, Ada", exec.Outcome().Output.Get("greeting"))
}

func TestBuilder_ActionAndDecision(t *testing.T) {
	b := dsl.New("pricing").
		StartAt("compute").
		Input(dsl.M{From: "price"}, dsl.M{From: "qty"}).
		Output(dsl.M{From: "total"})
	b.End("cheap")
	b.End("expensive")
	b.Action("compute").
		Set("total", "price * qty").
		Evaluate("total > 100", "").
		On("yes", "expensive").
		On("no", "classify")
	b.Decision("classify").
		If("total > 10", "expensive").
		Else("cheap")

	flow, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "compute", flow.StartState().ID())

	cases := []struct {
		price, qty int
		want       string
	}{
		{price: 50, qty: 3, want: "expensive"},
		{price: 6, qty: 2, want: "expensive"},
		{price: 2, qty: 2, want: "cheap"},
	}
	for _, tc := range cases {
		exec := runtime.NewFactory().CreateFlowExecution(flow, nil)
		require.NoError(t, exec.Start(context.Background(), domain.Attributes{"price": tc.price, "qty": tc.qty}, nil))
		require.True(t, exec.HasEnded())
		assert.Equal(t, tc.want, exec.Outcome().ID, "price=%d qty=%d", tc.price, tc.qty)
		assert.Equal(t, tc.price*tc.qty, exec.Outcome().Output.Get("total"))
	}
}

func TestBuilder_CollectsErrors(t *testing.T) {
	b := dsl.New("broken")
	b.Action("a").Evaluate("1 +", "").On("success", "end")
	b.Decision("d").If("(", "end")
	b.End("end")
	b.End("end")

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrDuplicateState)
	assert.Contains(t, err.Error(), `state "a"`)
	assert.Contains(t, err.Error(), `state "d"`)
}

func TestBuilder_UnknownTarget(t *testing.T) {
	b := dsl.New("dangling")
	b.View("v", "v").On("next", "nowhere")

	_, err := b.Build()
	assert.ErrorIs(t, err, engine.ErrUnknownState)
}

func TestBuilder_CatchTransitions(t *testing.T) {
	boom := errors.New("boom")
	b := dsl.New("guarded").Catch(engine.MatchIs(boom), "failed")
	b.Action("work", engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		return nil, boom
	})).On("success", "ok")
	b.End("ok")
	b.End("failed")

	flow, err := b.Build()
	require.NoError(t, err)

	exec := runtime.NewFactory().CreateFlowExecution(flow, nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	assert.Equal(t, "failed", exec.Outcome().ID)
}

func TestBuilder_InlineSubflow(t *testing.T) {
	child := dsl.New("child").Output(dsl.M{From: "'from child'", To: "msg"})
	child.End("finished")

	b := dsl.New("parent").Inline(child)
	b.Subflow("call", "child").Output(dsl.M{From: "msg"}).On("finished", "done")
	b.End("done").Output(dsl.M{From: "msg"})

	flow, err := b.Build()
	require.NoError(t, err)
	_, ok := flow.InlineFlow("child")
	assert.True(t, ok)

	exec := runtime.NewFactory().CreateFlowExecution(flow, nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	require.True(t, exec.HasEnded())
	assert.Equal(t, "from child", exec.Outcome().Output.Get("msg"))
}

func TestBuilder_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() { dsl.New("empty").MustBuild() })
}
