package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	coreapp "virtualmod/internal/core/app"
	"virtualmod/internal/core/config"
	"virtualmod/internal/shared/observability"
)

// analysisFactory builds the App a command runs against. Tests swap it for
// one backed by an in-memory filesystem.
type analysisFactory func(cfg *config.Config, paths config.ResolvedPaths) (*coreapp.App, error)

var coreAnalysisFactory analysisFactory = coreapp.New

func initializeAnalysis(env *runtimeEnv, factory analysisFactory) (*coreapp.App, error) {
	if factory == nil {
		return nil, fmt.Errorf("analysis factory is required")
	}
	app, err := factory(env.cfg, env.paths)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return app, nil
}

// startObservability installs tracing and, when enabled, serves /metrics and
// /health. The returned func shuts both down.
func startObservability(ctx context.Context, cfg *config.Config, app *coreapp.App) (func(), error) {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:      cfg.Observability.EnableTracing,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		Insecure:     cfg.Observability.Insecure,
	})
	if err != nil {
		return func() {}, fmt.Errorf("init tracing: %w", err)
	}

	var server *ObservabilityServer
	if cfg.Observability.Enabled {
		server = NewObservabilityServer(cfg.Observability.Address, coreapp.NewHealthService(app))
		if err := server.Start(ctx); err != nil {
			_ = shutdownTracing(ctx)
			return func() {}, err
		}
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if server != nil {
			if err := server.Stop(stopCtx); err != nil {
				slog.Warn("observability server shutdown failed", "error", err)
			}
		}
		if err := shutdownTracing(stopCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}, nil
}
