package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/ports"
)

// ErrTooManyRedirects is returned when redirects do not settle on a view.
var ErrTooManyRedirects = errors.New("too many redirects")

// Executor launches and resumes flow executions.
type Executor interface {
	Launch(ctx context.Context, flowID string, input domain.Attributes, ext ports.ExternalContext) (*webflow.Result, error)
	Resume(ctx context.Context, key string, ext ports.ExternalContext) (*webflow.Result, error)
}

// Runner handles the request loop of a flow execution using an IOHandler.
type Runner struct {
	executor     Executor
	handler      IOHandler
	renderer     ContentRenderer
	logger       *slog.Logger
	maxRedirects int
	signals      bool
}

// NewRunner creates a runner that reads from Stdin and writes to Stdout
// unless WithInputHandler is given.
func NewRunner(executor Executor, opts ...Option) *Runner {
	r := &Runner{
		executor:     executor,
		logger:       logging.NewNop(),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(os.Stdin, os.Stdout, WithTextHandlerRenderer(r.renderer))
	}
	return r
}

// Run launches flowID and drives it until it ends or the user stops. A stopped
// execution stays paused and its key is returned in the result.
func (r *Runner) Run(ctx context.Context, flowID string, input domain.Attributes) (*webflow.Result, error) {
	ctx, sm := r.context(ctx)
	defer sm.Stop()

	ext := external.New(nil)
	res, err := r.executor.Launch(context.WithoutCancel(ctx), flowID, input, ext)
	if err != nil {
		return nil, err
	}
	return r.loop(ctx, sm, res, ext)
}

// Continue resumes the execution paused under key, rendering its view again.
func (r *Runner) Continue(ctx context.Context, key string) (*webflow.Result, error) {
	ctx, sm := r.context(ctx)
	defer sm.Stop()

	ext := external.New(nil)
	res, err := r.executor.Resume(context.WithoutCancel(ctx), key, ext)
	if err != nil {
		return nil, err
	}
	return r.loop(ctx, sm, res, ext)
}

// context returns a nil manager when signal handling is off; its methods
// accept a nil receiver.
func (r *Runner) context(ctx context.Context) (context.Context, *SignalManager) {
	if !r.signals {
		return ctx, nil
	}
	sm := NewSignalManager(ctx)
	return sm.Context(), sm
}

// loop follows redirects, shows views and turns commands into requests.
// Requests run without the loop's cancellation so an interrupt never cuts one short.
func (r *Runner) loop(ctx context.Context, sm *SignalManager, res *webflow.Result, ext *external.Context) (*webflow.Result, error) {
	reqCtx := context.WithoutCancel(ctx)
	redirects := 0

	for {
		resp := ext.Response()
		if resp.IsRedirect() || (res.Paused() && resp.Kind == domain.ResponseNone) {
			redirects++
			if redirects > r.maxRedirects {
				return res, fmt.Errorf("%w: %d", ErrTooManyRedirects, redirects-1)
			}
		}

		switch resp.Kind {
		case domain.ResponseExternalRedirect:
			r.logger.Debug("External redirect", "location", resp.Location)
			return res, r.handler.SystemOutput(ctx, "Redirect: "+resp.Location)

		case domain.ResponseFlowDefinitionRedirect:
			if err := r.handler.SystemOutput(ctx, "Starting flow "+resp.FlowID); err != nil {
				return res, err
			}
			ext = external.New(nil)
			next, err := r.executor.Launch(reqCtx, resp.FlowID, resp.Input, ext)
			if err != nil {
				return res, err
			}
			res = next
			continue

		case domain.ResponseFlowExecutionRedirect, domain.ResponseNone:
			if res.Paused() {
				ext = external.New(nil)
				next, err := r.executor.Resume(reqCtx, res.Key, ext)
				if err != nil {
					return res, err
				}
				res = next
				continue
			}

		case domain.ResponseRender:
			redirects = 0
			view := View{FlowID: res.FlowID, Key: res.Key, ViewID: resp.ViewID, Model: resp.Model, Popup: resp.Popup}
			if err := r.handler.Output(ctx, view); err != nil {
				return res, fmt.Errorf("output error: %w", err)
			}
		}

		if res.Ended() {
			r.logger.Debug("Flow ended", "flow_id", res.FlowID, "outcome", res.Outcome.ID)
			return res, r.handler.SystemOutput(ctx, fmt.Sprintf("Flow %s ended: %s", res.FlowID, res.Outcome.ID))
		}

		next, nextExt, err := r.step(ctx, reqCtx, res)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				msg := "Paused at execution " + res.Key
				if sig := sm.Signal(); sig != nil {
					r.logger.Debug("Interrupted", "signal", sig.String(), "key", res.Key)
					msg = fmt.Sprintf("Interrupted (%s). %s", sig, msg)
				}
				return res, r.handler.SystemOutput(context.WithoutCancel(ctx), msg)
			}
			return res, err
		}
		res, ext = next, nextExt
	}
}

// step reads one command and signals it. Requests the flow rejects are
// reported and the command is read again; the paused execution is unchanged.
func (r *Runner) step(ctx, reqCtx context.Context, res *webflow.Result) (*webflow.Result, *external.Context, error) {
	for {
		cmd, err := r.handler.Input(ctx)
		if err != nil {
			return nil, nil, err
		}
		ext := external.New(cmd.Parameters())
		next, err := r.executor.Resume(reqCtx, res.Key, ext)
		if err == nil {
			return next, ext, nil
		}
		if errors.Is(err, domain.ErrNoSuchFlowExecution) || errors.Is(err, domain.ErrLockTimeout) {
			return nil, nil, err
		}
		r.logger.Debug("Request rejected", "key", res.Key, "event", cmd.Event, "err", err)
		if err := r.handler.SystemOutput(ctx, "Error: "+err.Error()); err != nil {
			return nil, nil, err
		}
	}
}
