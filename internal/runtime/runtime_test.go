package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/webflow/internal/runtime"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/mapping"
	"github.com/aretw0/webflow/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type locator map[string]*engine.Flow

func (l locator) FlowDefinition(id string) (*engine.Flow, error) {
	if f, ok := l[id]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrNoSuchFlow, id)
}

// recordingKeys is a KeyFactory that hands out sequential keys and records calls.
type recordingKeys struct {
	next    int
	calls   []string
	updates int
}

func (k *recordingKeys) GetKey(_ context.Context, _ *runtime.Execution) (string, error) {
	k.next++
	k.calls = append(k.calls, "get")
	return fmt.Sprintf("k%d", k.next), nil
}

func (k *recordingKeys) RemoveFlowExecutionSnapshot(context.Context, *runtime.Execution) error {
	k.calls = append(k.calls, "remove")
	return nil
}

func (k *recordingKeys) RemoveAllFlowExecutionSnapshots(context.Context, *runtime.Execution) error {
	k.calls = append(k.calls, "removeAll")
	return nil
}

func (k *recordingKeys) UpdateFlowExecutionSnapshot(context.Context, *runtime.Execution) error {
	k.updates++
	k.calls = append(k.calls, "update")
	return nil
}

func event(id string) *external.Context {
	return external.New(domain.Attributes{domain.ParamEventID: id})
}

// formFlow: form (view) --submit--> done (end), with a flow variable and an output mapping.
func formFlow(t *testing.T, viewCfg func(*engine.ViewStateConfig)) *engine.Flow {
	t.Helper()
	out, err := mapping.Simple("name", "")
	require.NoError(t, err)
	f := engine.NewFlow("form",
		engine.WithVariables(engine.FlowVariable{Name: "name", Create: engine.Value("anonymous")}),
		engine.WithOutputMapper(mapping.NewMapper(out)),
	)
	cfg := engine.ViewStateConfig{
		ID:          "form",
		ViewFactory: views.New("formView"),
		Transitions: []*engine.Transition{
			engine.NewTransition(engine.On("submit"), engine.To("done")),
			engine.NewTransition(engine.On("stay")),
		},
	}
	if viewCfg != nil {
		viewCfg(&cfg)
	}
	_, err = engine.NewViewState(f, cfg)
	require.NoError(t, err)
	_, err = engine.NewEndState(f, engine.EndStateConfig{ID: "done"})
	require.NoError(t, err)
	return f
}

func TestExecution_StartPausesInViewState(t *testing.T) {
	flow := formFlow(t, nil)
	keys := &recordingKeys{}
	exec := runtime.NewFactory().CreateFlowExecution(flow, keys)

	ext := external.New(nil)
	require.NoError(t, exec.Start(context.Background(), nil, ext))

	assert.True(t, exec.IsActive())
	assert.Equal(t, "form", exec.CurrentState().ID())
	assert.Equal(t, "k1", exec.Key())
	assert.Equal(t, "anonymous", exec.ActiveSession().Scope().Get("name"))

	resp := ext.Response()
	assert.Equal(t, domain.ResponseRender, resp.Kind)
	assert.Equal(t, "formView", resp.ViewID)
	assert.Equal(t, "k1", resp.Model.Get("flowExecutionKey"))
	assert.True(t, ext.IsResponseComplete())
}

func TestExecution_ResumeEndsWithOutcome(t *testing.T) {
	flow := formFlow(t, nil)
	exec := runtime.NewFactory().CreateFlowExecution(flow, nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	assert.Empty(t, exec.Key(), "no key factory, no key")

	require.NoError(t, exec.Resume(context.Background(), event("submit")))

	assert.True(t, exec.HasEnded())
	assert.Nil(t, exec.CurrentState())
	require.NotNil(t, exec.Outcome())
	assert.Equal(t, "done", exec.Outcome().ID)
	assert.Equal(t, "anonymous", exec.Outcome().Output.Get("name"))

	err := exec.Resume(context.Background(), event("submit"))
	assert.ErrorIs(t, err, runtime.ErrNotActive)
}

func TestExecution_StartTwice(t *testing.T) {
	exec := runtime.NewFactory().CreateFlowExecution(formFlow(t, nil), nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	assert.ErrorIs(t, exec.Start(context.Background(), nil, nil), runtime.ErrAlreadyStarted)
}

func TestExecution_ResumeWithoutEventRefreshes(t *testing.T) {
	exec := runtime.NewFactory().CreateFlowExecution(formFlow(t, nil), nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	ext := external.New(nil)
	require.NoError(t, exec.Resume(context.Background(), ext))

	assert.Equal(t, "form", exec.CurrentState().ID())
	assert.Equal(t, domain.ResponseRender, ext.Response().Kind)
}

func TestExecution_UnmatchedUserEvent(t *testing.T) {
	exec := runtime.NewFactory().CreateFlowExecution(formFlow(t, nil), nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	err := exec.Resume(context.Background(), event("bogus"))

	var noMatch *engine.NoMatchingTransitionError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, "bogus", noMatch.EventID)
	assert.Equal(t, "form", noMatch.StateID)
	assert.True(t, exec.IsActive(), "execution stays paused")
}

func TestExecution_RedirectOnPause(t *testing.T) {
	flow := formFlow(t, nil)
	factory := runtime.NewFactory(runtime.WithAttributes(domain.Attributes{domain.AttrAlwaysRedirectOnPause: true}))
	keys := &recordingKeys{}
	exec := factory.CreateFlowExecution(flow, keys)

	ext := external.New(nil)
	require.NoError(t, exec.Start(context.Background(), nil, ext))
	assert.Equal(t, domain.ResponseFlowExecutionRedirect, ext.Response().Kind)

	// The redirect target is a refresh that renders.
	ext = external.New(nil)
	require.NoError(t, exec.Resume(context.Background(), ext))
	assert.Equal(t, domain.ResponseRender, ext.Response().Kind)

	// A postback that stays in the state redirects again after updating the snapshot.
	ext = event("stay")
	require.NoError(t, exec.Resume(context.Background(), ext))
	assert.Equal(t, domain.ResponseFlowExecutionRedirect, ext.Response().Kind)
	assert.Equal(t, 1, keys.updates)
}

func TestExecution_StateRedirectFlagOverridesAttribute(t *testing.T) {
	no := false
	flow := formFlow(t, func(cfg *engine.ViewStateConfig) { cfg.Redirect = &no })
	factory := runtime.NewFactory(runtime.WithAttributes(domain.Attributes{domain.AttrAlwaysRedirectOnPause: true}))
	exec := factory.CreateFlowExecution(flow, nil)

	ext := external.New(nil)
	require.NoError(t, exec.Start(context.Background(), nil, ext))
	assert.Equal(t, domain.ResponseRender, ext.Response().Kind)
}

func TestExecution_Popup(t *testing.T) {
	flow := formFlow(t, func(cfg *engine.ViewStateConfig) { cfg.Popup = true })
	exec := runtime.NewFactory().CreateFlowExecution(flow, nil)

	ext := external.New(nil)
	require.NoError(t, exec.Start(context.Background(), nil, ext))
	assert.Equal(t, domain.ResponseFlowExecutionRedirect, ext.Response().Kind)
	assert.True(t, ext.Response().Popup)
}

func TestExecution_AjaxPostbackRerenders(t *testing.T) {
	factory := runtime.NewFactory(runtime.WithAttributes(domain.Attributes{domain.AttrAlwaysRedirectOnPause: true}))
	no := false
	exec := factory.CreateFlowExecution(formFlow(t, func(cfg *engine.ViewStateConfig) { cfg.Redirect = &no }), nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	ext := external.New(domain.Attributes{domain.ParamEventID: "stay"}, external.WithAjax(true))
	require.NoError(t, exec.Resume(context.Background(), ext))
	assert.Equal(t, domain.ResponseRender, ext.Response().Kind)
}

func TestExecution_HistoryPolicies(t *testing.T) {
	tests := []struct {
		name    string
		state   domain.History
		trans   domain.History
		expects string
	}{
		{name: "discard", state: domain.HistoryDiscard, expects: "remove"},
		{name: "invalidate", state: domain.HistoryInvalidate, expects: "removeAll"},
		{name: "transition overrides state", state: domain.HistoryPreserve, trans: domain.HistoryDiscard, expects: "remove"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := engine.NewFlow("h")
			opts := []engine.TransitionOption{engine.On("next"), engine.To("end")}
			if tt.trans != "" {
				opts = append(opts, engine.WithHistory(tt.trans))
			}
			_, err := engine.NewViewState(flow, engine.ViewStateConfig{
				ID:          "v",
				ViewFactory: views.New("v"),
				History:     tt.state,
				Transitions: []*engine.Transition{engine.NewTransition(opts...)},
			})
			require.NoError(t, err)
			_, err = engine.NewEndState(flow, engine.EndStateConfig{ID: "end"})
			require.NoError(t, err)

			keys := &recordingKeys{}
			exec := runtime.NewFactory().CreateFlowExecution(flow, keys)
			require.NoError(t, exec.Start(context.Background(), nil, nil))
			require.NoError(t, exec.Resume(context.Background(), event("next")))

			assert.Equal(t, []string{"get", tt.expects}, keys.calls)
		})
	}
}

func TestExecution_ViewScopeLifecycle(t *testing.T) {
	flow := engine.NewFlow("scopes")
	_, err := engine.NewViewState(flow, engine.ViewStateConfig{
		ID:          "first",
		ViewFactory: views.New("first"),
		Variables:   []engine.ViewVariable{{Name: "draft", Create: engine.Value("x")}},
		Transitions: []*engine.Transition{engine.NewTransition(engine.On("next"), engine.To("second"))},
	})
	require.NoError(t, err)
	_, err = engine.NewViewState(flow, engine.ViewStateConfig{
		ID:          "second",
		ViewFactory: views.New("second"),
	})
	require.NoError(t, err)

	exec := runtime.NewFactory().CreateFlowExecution(flow, nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	exec.ActiveSession().ViewScope().Put("scratch", 1)
	assert.Equal(t, "x", exec.ActiveSession().ViewScope().Get("draft"))

	require.NoError(t, exec.Resume(context.Background(), event("next")))
	assert.Equal(t, "second", exec.CurrentState().ID())
	assert.Empty(t, exec.ActiveSession().ViewScope())
}

func subflowPair(t *testing.T, mapper engine.SubflowAttributeMapper, parentOpts, childOpts []engine.FlowOption) (*engine.Flow, *engine.Flow) {
	t.Helper()
	child := engine.NewFlow("child", childOpts...)
	_, err := engine.NewViewState(child, engine.ViewStateConfig{
		ID:          "childView",
		ViewFactory: views.New("childView"),
		Transitions: []*engine.Transition{engine.NewTransition(engine.On("finish"), engine.To("childDone"))},
	})
	require.NoError(t, err)
	out, err := mapping.Simple("answer", "")
	require.NoError(t, err)
	_, err = engine.NewEndState(child, engine.EndStateConfig{ID: "childDone", OutputMapper: mapping.NewMapper(out)})
	require.NoError(t, err)

	parent := engine.NewFlow("parent", parentOpts...)
	_, err = engine.NewSubflowState(parent, engine.SubflowStateConfig{
		ID:              "sub",
		SubflowID:       "child",
		AttributeMapper: mapper,
		Transitions:     []*engine.Transition{engine.NewTransition(engine.On("childDone"), engine.To("parentDone"))},
	})
	require.NoError(t, err)
	_, err = engine.NewEndState(parent, engine.EndStateConfig{ID: "parentDone"})
	require.NoError(t, err)
	return parent, child
}

func TestExecution_SubflowWithoutMapper(t *testing.T) {
	parent, child := subflowPair(t, nil, nil, nil)
	factory := runtime.NewFactory(runtime.WithLocator(locator{"parent": parent, "child": child}))
	exec := factory.CreateFlowExecution(parent, nil)

	require.NoError(t, exec.Start(context.Background(), domain.Attributes{"ignored": true}, nil))
	require.Len(t, exec.Sessions(), 2)
	assert.Equal(t, "childView", exec.CurrentState().ID())
	assert.Empty(t, exec.ActiveSession().Scope(), "child starts with an empty input")

	require.NoError(t, exec.Resume(context.Background(), event("finish")))
	assert.True(t, exec.HasEnded())
	assert.Equal(t, "parentDone", exec.Outcome().ID)
}

func TestExecution_SubflowMapping(t *testing.T) {
	question, err := mapping.Simple("question", "")
	require.NoError(t, err)
	childIn, err := mapping.Simple("question", "flowScope")
	require.NoError(t, err)
	answer, err := mapping.Simple("answer", "flowScope")
	require.NoError(t, err)

	parent, child := subflowPair(t,
		engine.MappingSubflowMapper{Input: mapping.NewMapper(question), Output: mapping.NewMapper(answer)},
		[]engine.FlowOption{engine.WithVariables(engine.FlowVariable{Name: "question", Create: engine.Value("q?")})},
		[]engine.FlowOption{engine.WithInputMapper(mapping.NewMapper(childIn))},
	)
	factory := runtime.NewFactory(runtime.WithLocator(locator{"child": child}))
	exec := factory.CreateFlowExecution(parent, nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	assert.Equal(t, "q?", exec.ActiveSession().Scope().Get("question"))
	exec.ActiveSession().Scope().Put("answer", 42)

	root := exec.Sessions()[0]
	require.NoError(t, exec.Resume(context.Background(), event("finish")))
	assert.Equal(t, "parentDone", exec.Outcome().ID)
	assert.Equal(t, 42, root.Scope().Get("answer"))
}

func TestExecution_SnapshotRestore(t *testing.T) {
	parent, child := subflowPair(t, nil, nil, nil)
	factory := runtime.NewFactory(runtime.WithLocator(locator{"parent": parent, "child": child}))
	exec := factory.CreateFlowExecution(parent, nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	exec.ActiveSession().Scope().Put("n", 7)
	exec.ConversationScope().Put("user", "u1")

	snap := exec.Snapshot()
	require.Len(t, snap.Sessions, 2)
	assert.Equal(t, "sub", snap.Sessions[0].StateID)
	assert.Equal(t, "childView", snap.Sessions[1].StateID)

	restored, err := factory.Restore(snap, "key-1", exec.ConversationScope(), nil)
	require.NoError(t, err)
	assert.True(t, restored.IsActive())
	assert.Equal(t, "key-1", restored.Key())
	assert.Equal(t, "childView", restored.CurrentState().ID())
	assert.Equal(t, 7, restored.ActiveSession().Scope().Get("n"))
	assert.Equal(t, "u1", restored.ConversationScope().Get("user"))

	require.NoError(t, restored.Resume(context.Background(), event("finish")))
	assert.Equal(t, "parentDone", restored.Outcome().ID)
}

func TestFactory_RestoreUnknownState(t *testing.T) {
	flow := formFlow(t, nil)
	factory := runtime.NewFactory(runtime.WithLocator(locator{"form": flow}))
	snap := &runtime.ExecutionSnapshot{
		FlowID:   "form",
		Sessions: []runtime.SessionSnapshot{{FlowID: "form", StateID: "gone"}},
	}
	_, err := factory.Restore(snap, "k", nil, nil)
	assert.ErrorIs(t, err, engine.ErrUnknownState)

	_, err = runtime.NewFactory().Restore(snap, "k", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoSuchFlow)
}

func TestExecution_UnhandledActionError(t *testing.T) {
	boom := errors.New("boom")
	flow := engine.NewFlow("failing")
	_, err := engine.NewActionState(flow, engine.ActionStateConfig{
		ID: "work",
		Actions: []engine.Action{engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
			return nil, boom
		})},
	})
	require.NoError(t, err)

	var exceptions int
	hooks := domain.LifecycleHooks{OnException: func(context.Context, *domain.LifecycleEvent) { exceptions++ }}
	exec := runtime.NewFactory(runtime.WithLifecycleHooks(hooks)).CreateFlowExecution(flow, nil)

	err = exec.Start(context.Background(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var actionErr *engine.ActionExecutionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "failing", actionErr.FlowID)
	assert.Equal(t, "work", actionErr.StateID)
	assert.Equal(t, 1, exceptions)
}

func TestExecution_HandledError(t *testing.T) {
	boom := errors.New("boom")
	flow := engine.NewFlow("recovering")
	handler := engine.NewTransitionExecutingHandler().On(engine.MatchIs(boom), "failed")
	_, err := engine.NewActionState(flow, engine.ActionStateConfig{
		ID: "work",
		Actions: []engine.Action{engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
			return nil, boom
		})},
		ExceptionHandlers: []engine.ExceptionHandler{handler},
	})
	require.NoError(t, err)
	_, err = engine.NewViewState(flow, engine.ViewStateConfig{ID: "failed", ViewFactory: views.New("error")})
	require.NoError(t, err)

	exec := runtime.NewFactory().CreateFlowExecution(flow, nil)
	ext := external.New(nil)
	require.NoError(t, exec.Start(context.Background(), nil, ext))

	assert.Equal(t, "failed", exec.CurrentState().ID())
	model := ext.Response().Model
	assert.Contains(t, model.GetString(domain.FlashFlowExecutionException), "boom")
	assert.Equal(t, "boom", model.Get(domain.FlashRootCauseException))
	assert.Empty(t, exec.FlashScope(), "flash is cleared once rendered")
}

func TestExecution_LifecycleHooks(t *testing.T) {
	var events []domain.EventType
	record := func(_ context.Context, ev *domain.LifecycleEvent) { events = append(events, ev.Type) }
	hooks := domain.LifecycleHooks{
		OnSessionStarting: record,
		OnSessionStarted:  record,
		OnSessionEnded:    record,
		OnStateEntered:    record,
		OnEventSignaled:   record,
		OnViewRendered:    record,
		OnPaused:          record,
		OnResuming:        record,
	}
	exec := runtime.NewFactory(runtime.WithLifecycleHooks(hooks)).CreateFlowExecution(formFlow(t, nil), nil)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	require.NoError(t, exec.Resume(context.Background(), event("submit")))

	assert.Equal(t, []domain.EventType{
		domain.EventSessionStarting,
		domain.EventStateEntered,
		domain.EventViewRendered,
		domain.EventSessionStarted,
		domain.EventPaused,
		domain.EventResuming,
		domain.EventSignaled,
		domain.EventStateEntered,
		domain.EventSessionEnded,
	}, events)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "not_started", runtime.StatusNotStarted.String())
	assert.Equal(t, "active", runtime.StatusActive.String())
	assert.Equal(t, "ended", runtime.StatusEnded.String())
}
