package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/idflow/config"
	"github.com/target/idflow/internal/adapters/console"
	"github.com/target/idflow/internal/adapters/federation"
	"github.com/target/idflow/internal/adapters/oidc"
	redisadapter "github.com/target/idflow/internal/adapters/redis"
	"github.com/target/idflow/internal/clock"
	"github.com/target/idflow/internal/events"
	"github.com/target/idflow/internal/observability/metrics"
	"github.com/target/idflow/internal/observability/statsd"
	"github.com/target/idflow/internal/service"
)

// RuntimeDeps groups the inputs for BuildRuntime.
type RuntimeDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger

	// Out receives console output; nil disables the presenter.
	Out     io.Writer
	Verbose bool

	// Redis overrides connecting from Config.Redis. The caller keeps ownership.
	Redis redis.UniversalClient
	Clock clock.Clock // optional
}

// Runtime holds the wired session service and the resources behind it.
type Runtime struct {
	Session   *service.SessionService
	Presenter *console.Presenter       // nil without an output writer
	Mirror    *redisadapter.EventMirror // nil when the mirror is disabled
	Metrics   *statsd.Client

	redis     redis.UniversalClient
	ownsRedis bool
}

// BuildRuntime wires the session service with its federation provider, token
// inspector and event sinks.
func BuildRuntime(ctx context.Context, deps RuntimeDeps) (*Runtime, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := deps.Clock
	if c == nil {
		c = clock.Real{}
	}

	provider, err := federation.NewProvider(federation.Config{
		ClientID:         cfg.Federation.ClientID,
		RedirectURL:      cfg.Federation.RedirectURL,
		PlaceholderEmail: cfg.Federation.PlaceholderEmail,
		Clock:            c,
	})
	if err != nil {
		return nil, fmt.Errorf("build federation provider: %w", err)
	}

	inspector, err := oidc.NewInspector(oidc.InspectorConfig{
		Issuer:   cfg.Tokens.Issuer,
		ClientID: cfg.Tokens.ClientID,
		Clock:    c,
	})
	if err != nil {
		return nil, fmt.Errorf("build token inspector: %w", err)
	}

	rt := &Runtime{}
	if err := rt.connectRedis(ctx, deps, logger); err != nil {
		return nil, err
	}

	metricsClient, err := statsd.NewClient(ctx, statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		// Metrics are best effort; keep running with a disabled client.
		logger.WarnContext(ctx, "statsd disabled", "error", err)
		metricsClient, _ = statsd.NewClient(ctx, statsd.Config{Logger: logger})
	}
	rt.Metrics = metricsClient

	sinks := make([]events.NamedSink, 0, 3)
	if deps.Out != nil {
		rt.Presenter = console.NewPresenter(deps.Out, console.Options{Verbose: deps.Verbose})
		sinks = append(sinks, events.NamedSink{Name: "console", Sink: rt.Presenter})
	}
	if rt.redis != nil {
		rt.Mirror = redisadapter.NewEventMirror(rt.redis, redisadapter.EventMirrorOptions{
			Prefix:       cfg.Redis.KeyPrefix,
			StreamMaxLen: cfg.Redis.StreamMaxLen,
		})
		sinks = append(sinks, events.NamedSink{Name: "redis", Sink: rt.Mirror})
	}
	if rt.Metrics.Enabled() {
		sinks = append(sinks, events.NamedSink{Name: "metrics", Sink: metrics.NewFlowSink(rt.Metrics)})
	}

	rt.Session = service.NewSessionService(service.SessionServiceOptions{
		Flow:       cfg.Flow,
		Federation: cfg.Federation,
		Registry:   service.NewPrincipalRegistry(c),
		Tokens:     service.NewTokenFactory(cfg.Tokens, c),
		Broker:     service.NewCredentialBroker(cfg.Credentials, c),
		Provider:   provider,
		Inspector:  inspector,
		Sink:       events.NewBroadcaster(logger, sinks...),
		Clock:      c,
		Logger:     logger,
	})

	logger.InfoContext(ctx, "session runtime ready",
		"sinks", len(sinks),
		"redis_mirror", rt.Mirror != nil,
		"metrics", rt.Metrics.Enabled())
	return rt, nil
}

func (rt *Runtime) connectRedis(ctx context.Context, deps RuntimeDeps, logger *slog.Logger) error {
	if deps.Redis != nil {
		rt.redis = deps.Redis
		return nil
	}
	if !deps.Config.Redis.Enabled {
		return nil
	}
	client, err := ConnectRedis(ctx, deps.Config.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis mirror: %w", err)
	}
	rt.redis = client
	rt.ownsRedis = true
	return nil
}

// Close releases the metrics connection and any Redis client the runtime opened.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	if err := rt.Metrics.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close statsd: %w", err))
	}
	if rt.ownsRedis && rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
