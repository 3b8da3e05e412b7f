package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/webflow/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that log every event at debug level,
// and exceptions at warn level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(ctx context.Context, e *domain.LifecycleEvent) {
		logger.DebugContext(ctx, string(e.Type), attrs(e)...)
	}
	return domain.LifecycleHooks{
		OnSessionStarting: log,
		OnSessionStarted:  log,
		OnSessionEnded:    log,
		OnStateEntered:    log,
		OnEventSignaled:   log,
		OnViewRendered:    log,
		OnPaused:          log,
		OnResuming:        log,
		OnException: func(ctx context.Context, e *domain.LifecycleEvent) {
			logger.WarnContext(ctx, string(e.Type), append(attrs(e), "err", e.Err)...)
		},
	}
}

func attrs(e *domain.LifecycleEvent) []any {
	out := []any{"flow_id", e.FlowID, "depth", e.Depth}
	if e.StateID != "" {
		out = append(out, "state_id", e.StateID)
	}
	if e.PreviousStateID != "" {
		out = append(out, "previous_state_id", e.PreviousStateID)
	}
	if e.EventID != "" {
		out = append(out, "event", e.EventID)
	}
	if e.Key != "" {
		out = append(out, "key", e.Key)
	}
	return out
}
