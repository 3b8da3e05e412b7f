package webflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, builders ...*dsl.Builder) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	for _, b := range builders {
		f, err := b.Build()
		require.NoError(t, err)
		require.NoError(t, r.RegisterFlow(f))
	}
	return r
}

func postback(eventID string, params ...string) *external.Context {
	p := domain.Attributes{domain.ParamEventID: eventID}
	for i := 0; i+1 < len(params); i += 2 {
		p[params[i]] = params[i+1]
	}
	return external.New(p)
}

func bookingFlow(saved *[]string) *dsl.Builder {
	b := dsl.New("booking")
	b.Action("setup").Set("booking", "{'nights': 1}").On("success", "enterDetails")
	b.View("enterDetails", "detailsView").Model("booking").On("submit", "save")
	b.Action("save", engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		booking := rc.FlowScope().Get("booking").(map[string]any)
		*saved = append(*saved, booking["guest"].(string))
		return engine.Success(), nil
	})).On("success", "finished")
	b.End("finished")
	return b
}

// Launch, submit, save and end; the conversation is gone afterwards.
func TestExecutor_Booking(t *testing.T) {
	var saved []string
	store := memory.NewStore()
	executor := webflow.New(register(t, bookingFlow(&saved)), webflow.WithStore(store))
	ctx := context.Background()

	ext := external.New(nil)
	res, err := executor.Launch(ctx, "booking", nil, ext)
	require.NoError(t, err)
	require.True(t, res.Paused())
	assert.Equal(t, "booking", res.FlowID)
	assert.Equal(t, "detailsView", ext.Response().ViewID)
	assert.Equal(t, 1, ext.Response().Model.Get("booking").(map[string]any)["nights"])

	key := res.Key
	ext = postback("submit", "guest", "Ada")
	res, err = executor.Resume(ctx, key, ext)
	require.NoError(t, err)
	require.True(t, res.Ended())
	assert.False(t, res.Paused())
	assert.Equal(t, "finished", res.Outcome.ID)
	assert.Equal(t, []string{"Ada"}, saved)

	_, err = executor.Repository().GetFlowExecution(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNoSuchFlowExecution)
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = executor.Resume(ctx, key, postback("submit"))
	assert.ErrorIs(t, err, domain.ErrNoSuchFlowExecution)
}

// A subflow state without mapper passes nothing in and nothing out.
func TestExecutor_SubflowWithoutMapper(t *testing.T) {
	var childScope domain.Attributes
	child := dsl.New("child").
		OnStart(engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
			childScope = rc.FlowScope().Clone()
			return nil, nil
		})).
		Output(dsl.M{From: "'value'", To: "leaked"})
	child.View("childView", "childView").On("done", "finished")
	child.End("finished")

	parent := dsl.New("parent").Var("mine", engine.Value("parent data"))
	parent.Subflow("sub", "child").On("finished", "after")
	parent.View("after", "afterView")

	executor := webflow.New(register(t, child, parent))
	ctx := context.Background()

	res, err := executor.Launch(ctx, "parent", domain.Attributes{"ignored": true}, nil)
	require.NoError(t, err)
	assert.Empty(t, childScope, "child starts with an empty input")

	res, err = executor.Resume(ctx, res.Key, postback("done"))
	require.NoError(t, err)
	require.True(t, res.Paused())

	exec, err := executor.Repository().GetFlowExecution(ctx, res.Key)
	require.NoError(t, err)
	assert.Equal(t, "after", exec.CurrentState().ID())
	assert.Len(t, exec.Sessions(), 1)
	assert.Equal(t, domain.Attributes{"mine": "parent data"}, exec.ActiveSession().Scope())
}

func TestExecutor_RedirectOnPause(t *testing.T) {
	var saved []string
	executor := webflow.New(register(t, bookingFlow(&saved)), webflow.WithRedirectOnPause(true))
	ctx := context.Background()

	ext := external.New(nil)
	res, err := executor.Launch(ctx, "booking", nil, ext)
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseFlowExecutionRedirect, ext.Response().Kind)

	// Following the redirect renders the paused view.
	ext = external.New(nil)
	again, err := executor.Resume(ctx, res.Key, ext)
	require.NoError(t, err)
	assert.Equal(t, res.Key, again.Key, "a refresh keeps the key")
	assert.Equal(t, domain.ResponseRender, ext.Response().Kind)
	assert.Equal(t, "detailsView", ext.Response().ViewID)
}

func TestExecutor_LaunchEndsImmediately(t *testing.T) {
	b := dsl.New("instant")
	b.End("done").Redirect("'https://example.com/thanks'")
	executor := webflow.New(register(t, b))

	ext := external.New(nil)
	res, err := executor.Launch(context.Background(), "instant", nil, ext)
	require.NoError(t, err)
	assert.True(t, res.Ended())
	assert.Empty(t, res.Key)
	assert.Equal(t, domain.ResponseExternalRedirect, ext.Response().Kind)
	assert.Equal(t, "https://example.com/thanks", ext.Response().Location)
}

func TestExecutor_FailedLaunchDiscardsConversation(t *testing.T) {
	boom := errors.New("render failed")
	b := dsl.New("broken")
	b.View("v", "v").OnRender(engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		return nil, boom
	}))

	store := memory.NewStore()
	executor := webflow.New(register(t, b), webflow.WithStore(store))
	_, err := executor.Launch(context.Background(), "broken", nil, nil)
	assert.ErrorIs(t, err, boom)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestExecutor_LaunchEndedByHandlerRemovesConversation(t *testing.T) {
	b := dsl.New("recovering")
	b.View("v", "v").OnRender(engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		return nil, errors.New("render failed")
	}))
	b.End("oops")
	b.Catch(engine.MatchAny(), "oops")

	store := memory.NewStore()
	executor := webflow.New(register(t, b), webflow.WithStore(store))
	res, err := executor.Launch(context.Background(), "recovering", nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Ended())
	assert.Equal(t, "oops", res.Outcome.ID)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestExecutor_LaunchRecoveryHoldsConversationLock(t *testing.T) {
	b := dsl.New("recovering")
	b.View("v", "v").History(domain.HistoryDiscard).OnRender(engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		return nil, errors.New("render failed")
	}))
	b.View("w", "w")
	b.Catch(engine.MatchAny(), "w")

	store := memory.NewStore()
	executor := webflow.New(register(t, b), webflow.WithStore(store), webflow.WithLockTimeout(time.Second))
	ctx := context.Background()

	res, err := executor.Launch(ctx, "recovering", nil, nil)
	require.NoError(t, err)
	require.True(t, res.Paused())

	ext := external.New(nil)
	again, err := executor.Resume(ctx, res.Key, ext)
	require.NoError(t, err, "the launch released the conversation lock")
	assert.True(t, again.Paused())
	assert.Equal(t, "w", ext.Response().ViewID)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestExecutor_Errors(t *testing.T) {
	var saved []string
	executor := webflow.New(register(t, bookingFlow(&saved)))
	ctx := context.Background()

	_, err := executor.Launch(ctx, "missing", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoSuchFlow)

	_, err = executor.Resume(ctx, "not-a-key", nil)
	assert.ErrorIs(t, err, domain.ErrBadKeyFormat)

	_, err = executor.Resume(ctx, "eunknowns1", nil)
	assert.ErrorIs(t, err, domain.ErrNoSuchFlowExecution)
}

func TestExecutor_BackButton(t *testing.T) {
	b := dsl.New("wizard")
	b.View("one", "one").On("next", "two")
	b.View("two", "two").On("next", "three")
	b.View("three", "three")

	executor := webflow.New(register(t, b))
	ctx := context.Background()

	first, err := executor.Launch(ctx, "wizard", nil, nil)
	require.NoError(t, err)
	second, err := executor.Resume(ctx, first.Key, postback("next"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, second.Key)

	// Going back to the first key forks the dialog from the first page.
	ext := postback("next")
	forked, err := executor.Resume(ctx, first.Key, ext)
	require.NoError(t, err)
	assert.Equal(t, "two", ext.Response().ViewID)
	assert.NotEqual(t, second.Key, forked.Key)
}

func TestExecutor_LifecycleHooks(t *testing.T) {
	var saved []string
	var paused, ended int
	executor := webflow.New(register(t, bookingFlow(&saved)),
		webflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnPaused: func(context.Context, *domain.LifecycleEvent) { paused++ },
		}),
		webflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnSessionEnded: func(context.Context, *domain.LifecycleEvent) { ended++ },
		}),
	)
	ctx := context.Background()
	res, err := executor.Launch(ctx, "booking", nil, nil)
	require.NoError(t, err)
	_, err = executor.Resume(ctx, res.Key, postback("submit", "guest", "Ada"))
	require.NoError(t, err)

	assert.Equal(t, 1, paused)
	assert.Equal(t, 1, ended)
}
