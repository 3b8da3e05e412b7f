package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Executor launches and resumes flow executions.
type Executor interface {
	Launch(ctx context.Context, flowID string, input domain.Attributes, ext ports.ExternalContext) (*webflow.Result, error)
	Resume(ctx context.Context, key string, ext ports.ExternalContext) (*webflow.Result, error)
}

// Error codes of JSON error bodies.
const (
	CodeFlowExecutionExpired = "flow_execution_expired"
	CodeBadExecutionKey      = "bad_execution_key"
	CodeFlowNotFound         = "flow_not_found"
	CodeConversationLocked   = "conversation_locked"
	CodeInvalidInput         = "invalid_input"
	CodeInternal             = "internal_error"
)

// Server routes HTTP requests to an Executor.
type Server struct {
	executor  Executor
	basePath  string
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	sanitizer runner.Sanitizer
}

// Option configures a Server.
type Option func(*Server)

// WithBasePath mounts the flow routes under path, e.g. "/app".
func WithBasePath(path string) Option {
	return func(s *Server) { s.basePath = strings.TrimSuffix(path, "/") }
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMaxParamSize bounds the size of each request parameter value.
func WithMaxParamSize(n int) Option {
	return func(s *Server) { s.sanitizer.MaxSize = n }
}

// NewServer creates a server for executor.
func NewServer(executor Executor, opts ...Option) *Server {
	s := &Server{
		executor:  executor,
		logger:    logging.NewNop(),
		sanitizer: runner.NewSanitizer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for executor.
func NewHandler(executor Executor, opts ...Option) http.Handler {
	return NewServer(executor, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get(s.basePath+"/flows/{flowId}", s.HandleFlow)
	r.Post(s.basePath+"/flows/{flowId}", s.HandleFlow)
	return r
}

// ViewResponse is the JSON body of a rendered view.
type ViewResponse struct {
	FlowID    string            `json:"flow_id"`
	Execution string            `json:"execution,omitempty"`
	View      string            `json:"view"`
	Model     domain.Attributes `json:"model,omitempty"`
	Popup     bool              `json:"popup,omitempty"`
	Ended     bool              `json:"ended,omitempty"`
}

// OutcomeResponse is the JSON body of an ended execution without a final response.
type OutcomeResponse struct {
	FlowID  string            `json:"flow_id"`
	Outcome string            `json:"outcome"`
	Output  domain.Attributes `json:"output,omitempty"`
}

// RedirectResponse is the JSON body of a redirect answered to an ajax request.
type RedirectResponse struct {
	Redirect string `json:"redirect"`
	Popup    bool   `json:"popup,omitempty"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// HandleFlow launches or resumes the flow named in the URL.
func (s *Server) HandleFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowId")
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, CodeInvalidInput, err)
		return
	}
	params, err := s.sanitizer.Params(r.Form)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, CodeInvalidInput, err)
		return
	}

	ext := external.New(params, external.WithAjax(isAjax(r)))
	key := r.Form.Get(domain.ParamExecution)

	var res *webflow.Result
	if key == "" {
		input := params.Clone()
		delete(input, domain.ParamEventID)
		res, err = s.executor.Launch(r.Context(), flowID, input, ext)
	} else {
		res, err = s.executor.Resume(r.Context(), key, ext)
	}
	if err != nil {
		s.fail(w, flowID, key, err)
		return
	}
	s.respond(w, r, flowID, res, ext.Response())
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, flowID string, res *webflow.Result, resp domain.Response) {
	switch resp.Kind {
	case domain.ResponseFlowExecutionRedirect:
		s.redirect(w, r, s.executionURL(flowID, res.Key), resp.Popup)
	case domain.ResponseFlowDefinitionRedirect:
		s.redirect(w, r, s.flowURL(resp.FlowID, resp.Input), resp.Popup)
	case domain.ResponseExternalRedirect:
		s.redirect(w, r, resp.Location, resp.Popup)
	case domain.ResponseRender:
		writeJSON(w, http.StatusOK, ViewResponse{
			FlowID:    flowID,
			Execution: res.Key,
			View:      resp.ViewID,
			Model:     resp.Model,
			Popup:     resp.Popup,
			Ended:     res.Ended(),
		})
	default:
		if res.Ended() {
			writeJSON(w, http.StatusOK, OutcomeResponse{FlowID: flowID, Outcome: res.Outcome.ID, Output: res.Outcome.Output})
			return
		}
		// Paused without a response: point the client at the execution.
		s.redirect(w, r, s.executionURL(flowID, res.Key), false)
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, location string, popup bool) {
	if isAjax(r) {
		writeJSON(w, http.StatusOK, RedirectResponse{Redirect: location, Popup: popup})
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (s *Server) executionURL(flowID, key string) string {
	return s.basePath + "/flows/" + url.PathEscape(flowID) + "?" + url.Values{domain.ParamExecution: {key}}.Encode()
}

func (s *Server) flowURL(flowID string, input domain.Attributes) string {
	u := s.basePath + "/flows/" + url.PathEscape(flowID)
	if len(input) == 0 {
		return u
	}
	q := url.Values{}
	for k, v := range input {
		if str, ok := v.(string); ok {
			q.Set(k, str)
		}
	}
	if len(q) == 0 {
		return u
	}
	return u + "?" + q.Encode()
}

func (s *Server) fail(w http.ResponseWriter, flowID, key string, err error) {
	switch {
	case errors.Is(err, domain.ErrBadKeyFormat):
		s.writeError(w, http.StatusBadRequest, CodeBadExecutionKey, err)
	case errors.Is(err, domain.ErrNoSuchFlowExecution):
		s.writeError(w, http.StatusGone, CodeFlowExecutionExpired, err)
	case errors.Is(err, domain.ErrNoSuchFlow):
		s.writeError(w, http.StatusNotFound, CodeFlowNotFound, err)
	case errors.Is(err, domain.ErrLockTimeout):
		s.writeError(w, http.StatusServiceUnavailable, CodeConversationLocked, err)
	default:
		s.logger.Error("Flow request failed", "flow_id", flowID, "key", key, "err", err)
		s.writeError(w, http.StatusInternalServerError, CodeInternal, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code string, err error) {
	s.logger.Debug("Flow request rejected", "status", status, "code", code, "err", err)
	writeJSON(w, status, ErrorResponse{Code: code, Message: err.Error()})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "webflow-http",
		"version": strings.TrimSpace(webflow.Version),
	})
}

func isAjax(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return r.URL.Query().Get("ajaxSource") != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
