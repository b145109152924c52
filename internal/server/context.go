package server

import (
	"context"
	"sync"

	"github.com/tasklight/tasklight/internal/config"
	"github.com/tasklight/tasklight/internal/google"
	"github.com/tasklight/tasklight/internal/instrumentation"
	"github.com/tasklight/tasklight/internal/tasks"

	"google.golang.org/api/option"
)

// ServerContext holds the shared state for the MCP server.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg     *config.Config
	auth    *google.Authenticator
	metrics *instrumentation.Metrics

	mu           sync.Mutex
	tasksService tasks.Service
	newService   func(ctx context.Context) (tasks.Service, error)
	shutdown     bool
}

// NewServerContext creates a new server context. The Tasks service is not
// built here: construction requires a valid credential and may need the
// interactive authorization flow, so it is deferred to the first tool call.
func NewServerContext(ctx context.Context, cfg *config.Config) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	auth := google.New(google.Options{
		ClientConfigPath: cfg.ClientConfigPath,
		TokenPath:        cfg.TokenPath,
		CallbackPort:     cfg.OAuthPort,
		Scopes:           cfg.Scopes,
	})

	sc := &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		cfg:    cfg,
		auth:   auth,
	}
	sc.newService = sc.buildService

	return sc
}

// buildService obtains an authenticated HTTP client and wraps it in a Tasks
// client.
func (sc *ServerContext) buildService(ctx context.Context) (tasks.Service, error) {
	httpClient, err := sc.auth.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.NewClient(ctx, option.WithHTTPClient(httpClient))
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// TasksService returns the Tasks service, building it on first use.
// Concurrent first calls share a single construction, so the interactive
// authorization flow runs at most once. Failed constructions are not
// cached; the next call retries from scratch.
func (sc *ServerContext) TasksService(ctx context.Context) (tasks.Service, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.tasksService != nil {
		return sc.tasksService, nil
	}

	svc, err := sc.newService(ctx)
	if err != nil {
		return nil, err
	}

	sc.tasksService = svc
	return svc, nil
}

// SetTasksService sets the Tasks service, replacing lazy construction.
func (sc *ServerContext) SetTasksService(svc tasks.Service) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.tasksService = svc
}

// SetMetrics installs the metrics recorder used for tool invocations and
// OAuth lifecycle events.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
	sc.auth.SetMetricsRecorder(m)
}

// Metrics returns the metrics recorder, or nil if none is installed.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.metrics
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
