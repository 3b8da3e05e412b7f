/*
Package observability provides lifecycle hooks for monitoring flow executions.

Metrics records prometheus counters for sessions, state entries, signaled
events, rendered views and exceptions. LoggingHooks writes the same events to
a slog logger. Both return domain.LifecycleHooks, so they can be combined and
passed to webflow.WithLifecycleHooks.

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	hooks := metrics.Hooks().Combine(observability.LoggingHooks(logger))
	exec := webflow.New(registry, webflow.WithLifecycleHooks(hooks))
*/
package observability
