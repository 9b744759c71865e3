package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kbukum/steamlens/caller"
	"github.com/kbukum/steamlens/component"
	"github.com/kbukum/steamlens/httpclient"
	"github.com/kbukum/steamlens/logger"
	"github.com/kbukum/steamlens/metrics/prom"
	"github.com/kbukum/steamlens/observability"
	"github.com/kbukum/steamlens/server"
	"github.com/kbukum/steamlens/steam"
)

// app holds the wired components of one steamlens process.
type app struct {
	cfg      *AppConfig
	log      *logger.Logger
	registry *prometheus.Registry
	caller   *caller.Caller
	steam    *steam.Client
}

// newApp wires logging, metrics, the resilient caller and the Steam client.
func newApp(cfg *AppConfig) (*app, error) {
	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hc, err := httpclient.New(cfg.HTTP)
	if err != nil {
		return nil, err
	}

	callerCfg := cfg.Caller
	callerCfg.Logger = log
	prom.Instrument(reg, cfg.Metrics.Namespace, &callerCfg)
	rc := caller.New(hc, callerCfg)

	return &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		caller:   rc,
		steam:    steam.New(rc, cfg.Steam, log),
	}, nil
}

// lifecycle registers the long-running components for serve: the trace
// exporter when enabled, then the diagnostics server.
func (a *app) lifecycle() (*component.Registry, *server.Server, error) {
	reg := component.NewRegistry(a.log)

	if a.cfg.Tracing.Enabled {
		var shutdown func(context.Context) error
		err := reg.Register(component.Func{
			ComponentName: "tracer",
			OnStart: func(ctx context.Context) error {
				tp, err := observability.InitTracer(ctx, &a.cfg.Tracing)
				if err != nil {
					return err
				}
				shutdown = tp.Shutdown
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if shutdown == nil {
					return nil
				}
				return shutdown(ctx)
			},
		})
		if err != nil {
			return nil, nil, err
		}
	}

	srv := server.New(a.cfg.Server, a.log)
	srv.ApplyDefaults(server.Diagnostics{
		ServiceName: a.cfg.Name,
		Caller:      a.caller,
		Gatherer:    a.registry,
	})
	if err := reg.Register(srv); err != nil {
		return nil, nil, err
	}
	return reg, srv, nil
}
