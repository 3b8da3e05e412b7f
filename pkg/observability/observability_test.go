package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/observability"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the sample of family name whose labels include want.
func value(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func flows(t *testing.T) *registry.Registry {
	t.Helper()
	b := dsl.New("survey")
	b.View("ask", "ask").On("next", "done")
	b.End("done")

	broken := dsl.New("broken")
	broken.Action("fail", engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		return nil, errors.New("boom")
	})).On("success", "end")
	broken.End("end")

	reg := registry.NewRegistry()
	for _, builder := range []*dsl.Builder{b, broken} {
		f, err := builder.Build()
		require.NoError(t, err)
		require.NoError(t, reg.RegisterFlow(f))
	}
	return reg
}

func TestMetrics_Hooks(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(promReg)
	require.NoError(t, err)

	exec := webflow.New(flows(t), webflow.WithLifecycleHooks(metrics.Hooks()))
	ctx := context.Background()

	res, err := exec.Launch(ctx, "survey", nil, external.New(nil))
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, promReg, "webflow_sessions_started_total", map[string]string{"flow_id": "survey"}))
	assert.Equal(t, 1.0, value(t, promReg, "webflow_active_sessions", map[string]string{"flow_id": "survey"}))
	assert.Equal(t, 1.0, value(t, promReg, "webflow_state_entries_total", map[string]string{"state_id": "ask"}))

	_, err = exec.Resume(ctx, res.Key, external.New(domain.Attributes{domain.ParamEventID: "next"}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, promReg, "webflow_events_total", map[string]string{"event": "next"}))
	assert.Equal(t, 1.0, value(t, promReg, "webflow_sessions_ended_total", map[string]string{"outcome": "done"}))
	assert.Equal(t, 0.0, value(t, promReg, "webflow_active_sessions", map[string]string{"flow_id": "survey"}))

	_, err = exec.Launch(ctx, "broken", nil, external.New(nil))
	require.Error(t, err)
	assert.Equal(t, 1.0, value(t, promReg, "webflow_exceptions_total", map[string]string{"flow_id": "broken", "state_id": "fail"}))
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	promReg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(promReg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(promReg)
	assert.Error(t, err)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	ctx := context.Background()
	hooks.Fire(ctx, &domain.LifecycleEvent{Type: domain.EventStateEntered, FlowID: "survey", StateID: "ask", Depth: 1})
	hooks.Fire(ctx, &domain.LifecycleEvent{Type: domain.EventException, FlowID: "survey", StateID: "ask", Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=state_entered flow_id=survey depth=1 state_id=ask")
	assert.Contains(t, out, "level=WARN msg=exception")
	assert.Contains(t, out, "err=boom")
}
