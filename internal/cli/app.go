package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/compiler"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/pkg/adapters/file"
	webflowhttp "github.com/aretw0/webflow/pkg/adapters/http"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/adapters/redis"
	"github.com/aretw0/webflow/pkg/observability"
	"github.com/aretw0/webflow/pkg/persistence/middleware"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is a configured webflow deployment: its flows, store and executor.
type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Store    ports.ConversationStore
	Executor *webflow.Executor
	Metrics  *prometheus.Registry

	logger  *slog.Logger
	closers []func() error
}

// NewApp loads the flow definitions and wires the executor described by cfg.
// Actions referenced by the definitions are resolved from actions when given.
func NewApp(cfg *config.Config, logger *slog.Logger, actions *registry.Registry) (*App, error) {
	if actions == nil {
		actions = registry.NewRegistry()
	}
	app := &App{Config: cfg, Registry: actions, logger: logger}

	flows, err := compiler.New(actions).LoadDir(cfg.Flows.Dir, actions)
	if err != nil {
		return nil, fmt.Errorf("failed to load flows: %w", err)
	}
	logger.Info("Flows loaded", "dir", cfg.Flows.Dir, "count", len(flows))

	store, locker, err := app.openStore()
	if err != nil {
		return nil, err
	}
	app.Store = store

	hooks := observability.LoggingHooks(logger)
	if cfg.Server.Metrics {
		app.Metrics = prometheus.NewRegistry()
		app.Metrics.MustRegister(collectors.NewGoCollector())
		m, err := observability.NewMetrics(app.Metrics)
		if err != nil {
			return nil, errors.Join(err, app.Close())
		}
		hooks = hooks.Combine(m.Hooks())
	}

	opts := []webflow.Option{
		webflow.WithStore(store),
		webflow.WithLockTimeout(cfg.Execution.LockTimeout),
		webflow.WithMaxSnapshots(cfg.Execution.MaxSnapshots),
		webflow.WithAlwaysGenerateNewNextKey(cfg.Execution.AlwaysGenerateNewNextKey),
		webflow.WithCompression(cfg.Execution.Compression),
		webflow.WithRedirectOnPause(cfg.Execution.RedirectOnPause),
		webflow.WithLifecycleHooks(hooks),
		webflow.WithLogger(logger),
	}
	if locker != nil {
		opts = append(opts, webflow.WithLocker(locker))
	}
	app.Executor = webflow.New(actions, opts...)
	return app, nil
}

func (a *App) openStore() (ports.ConversationStore, ports.DistributedLocker, error) {
	sc := a.Config.Store
	var (
		store  ports.ConversationStore
		locker ports.DistributedLocker
	)
	switch sc.Type {
	case config.StoreFile:
		store = file.New(sc.Path)
	case config.StoreRedis:
		rs := redis.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			redis.WithPrefix(sc.Redis.Prefix),
			redis.WithTTL(sc.Redis.TTL),
		)
		a.closers = append(a.closers, rs.Close)
		store = rs
		locker = redis.NewLocker(rs.Client(), sc.Redis.Prefix+"lock:")
	default:
		store = memory.NewStore(memory.WithMaxConversations(sc.MaxConversations))
	}
	a.logger.Debug("Conversation store ready", "type", sc.Type)

	if sc.Encryption != nil {
		active, fallback, err := sc.Encryption.Keys()
		if err != nil {
			return nil, nil, errors.Join(err, a.Close())
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, nil, errors.Join(err, a.Close())
		}
		store = middleware.Chain(store, mw)
	}
	return store, locker, nil
}

// Handler returns the HTTP surface of the app.
func (a *App) Handler() http.Handler {
	opts := []webflowhttp.Option{
		webflowhttp.WithBasePath(a.Config.Server.BasePath),
		webflowhttp.WithLogger(a.logger),
	}
	if a.Metrics != nil {
		opts = append(opts, webflowhttp.WithMetrics(a.Metrics))
	}
	return webflowhttp.NewHandler(a.Executor, opts...)
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// FlowIDs lists the loaded flows.
func (a *App) FlowIDs() []string { return a.Registry.FlowIDs() }


// OpenStore opens the conversation store cfg describes. The returned func
// releases its connections.
func OpenStore(cfg *config.Config, logger *slog.Logger) (ports.ConversationStore, func() error, error) {
	app := &App{Config: cfg, logger: logger}
	store, _, err := app.openStore()
	if err != nil {
		return nil, nil, err
	}
	return store, app.Close, nil
}
