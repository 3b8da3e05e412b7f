package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aretw0/webflow"
	webflowhttp "github.com/aretw0/webflow/pkg/adapters/http"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/observability"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flows(t *testing.T) *registry.Registry {
	t.Helper()
	booking := dsl.New("booking")
	booking.Action("setup").Set("booking", "{'nights': 1}").On("success", "enterDetails")
	booking.View("enterDetails", "detailsView").Model("booking").
		On("submit", "finished").
		On("leave", "away")
	booking.End("finished").Output(dsl.M{From: "booking.guest", To: "guest"})
	booking.End("away").Redirect("'https://example.com/bye'")

	reg := registry.NewRegistry()
	f, err := booking.Build()
	require.NoError(t, err)
	require.NoError(t, reg.RegisterFlow(f))
	return reg
}

func newHandler(t *testing.T, execOpts []webflow.Option, opts ...webflowhttp.Option) http.Handler {
	t.Helper()
	return webflowhttp.NewHandler(webflow.New(flows(t), execOpts...), opts...)
}

func do(h http.Handler, method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleFlow_RenderAndSubmit(t *testing.T) {
	h := newHandler(t, nil)

	w := do(h, http.MethodGet, "/flows/booking", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[webflowhttp.ViewResponse](t, w)
	assert.Equal(t, "detailsView", view.View)
	assert.Equal(t, "booking", view.FlowID)
	require.NotEmpty(t, view.Execution)
	assert.EqualValues(t, 1, view.Model.Get("booking").(map[string]any)["nights"])

	w = do(h, http.MethodPost, "/flows/booking?execution="+view.Execution, url.Values{
		domain.ParamEventID: {"submit"},
		"guest":             {"Ada"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outcome := decode[webflowhttp.OutcomeResponse](t, w)
	assert.Equal(t, "finished", outcome.Outcome)
	assert.Equal(t, "Ada", outcome.Output.Get("guest"))

	// The conversation ended, so the key is gone.
	w = do(h, http.MethodGet, "/flows/booking?execution="+view.Execution, nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, webflowhttp.CodeFlowExecutionExpired, decode[webflowhttp.ErrorResponse](t, w).Code)
}

func TestHandleFlow_PostRedirectGet(t *testing.T) {
	h := newHandler(t, []webflow.Option{webflow.WithRedirectOnPause(true)})

	w := do(h, http.MethodPost, "/flows/booking", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/flows/booking?execution=e"), location)

	w = do(h, http.MethodGet, location, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "detailsView", decode[webflowhttp.ViewResponse](t, w).View)
}

func TestHandleFlow_AjaxRedirect(t *testing.T) {
	h := newHandler(t, []webflow.Option{webflow.WithRedirectOnPause(true)})

	w := do(h, http.MethodPost, "/flows/booking", url.Values{}, "X-Requested-With", "XMLHttpRequest")
	require.Equal(t, http.StatusOK, w.Code)
	redirect := decode[webflowhttp.RedirectResponse](t, w)
	assert.True(t, strings.HasPrefix(redirect.Redirect, "/flows/booking?execution="), redirect.Redirect)
}

func TestHandleFlow_ExternalRedirect(t *testing.T) {
	h := newHandler(t, nil)

	view := decode[webflowhttp.ViewResponse](t, do(h, http.MethodGet, "/flows/booking", nil))
	w := do(h, http.MethodPost, "/flows/booking?execution="+view.Execution, url.Values{domain.ParamEventID: {"leave"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "https://example.com/bye", w.Header().Get("Location"))
}

func TestHandleFlow_Errors(t *testing.T) {
	h := newHandler(t, nil, webflowhttp.WithBasePath("/app"))

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown flow", "/app/flows/nope", http.StatusNotFound, webflowhttp.CodeFlowNotFound},
		{"bad key", "/app/flows/booking?execution=garbage", http.StatusBadRequest, webflowhttp.CodeBadExecutionKey},
		{"unknown conversation", "/app/flows/booking?execution=emissings1", http.StatusGone, webflowhttp.CodeFlowExecutionExpired},
		{"oversized input", "/app/flows/booking?guest=" + strings.Repeat("x", 5000), http.StatusBadRequest, webflowhttp.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[webflowhttp.ErrorResponse](t, w).Code)
		})
	}
}

func TestHealthInfoAndMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(promReg)
	require.NoError(t, err)
	h := newHandler(t,
		[]webflow.Option{webflow.WithLifecycleHooks(metrics.Hooks())},
		webflowhttp.WithMetrics(promReg),
	)

	w := do(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/info", nil)
	assert.Equal(t, webflow.Version, decode[map[string]string](t, w)["version"])

	do(h, http.MethodGet, "/flows/booking", nil)
	w = do(h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `webflow_sessions_started_total{flow_id="booking"} 1`)
}
