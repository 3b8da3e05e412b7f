package runner

import (
	"log/slog"
)

// DefaultMaxRedirects bounds the redirects followed within one request.
const DefaultMaxRedirects = 10

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.handler = handler
	}
}

// WithRenderer configures the content renderer of the default text handler.
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.renderer = renderer
	}
}

// WithMaxRedirects bounds the redirects followed between two views.
func WithMaxRedirects(n int) Option {
	return func(r *Runner) {
		r.maxRedirects = n
	}
}

// WithSignals makes the runner stop on SIGINT and SIGTERM, leaving the
// current execution paused.
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.signals = enabled
	}
}
