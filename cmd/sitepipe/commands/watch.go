package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepipe/internal/build"
	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/watch"
)

// WatchCmd implements the 'watch' command. One engine serves every rebuild,
// so execution caches carry over between builds.
type WatchCmd struct {
	Metrics bool `help:"Serve Prometheus metrics even when disabled in the configuration"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}

	opts := []build.Option{build.WithLogger(logger)}
	var srv *http.Server
	if cfg.Metrics.Enabled || w.Metrics {
		reg := prom.NewRegistry()
		opts = append(opts, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
		srv = metricsServer(cfg.Metrics, reg)
		go func() {
			logger.Info("Serving metrics", "addr", srv.Addr, logfields.Path(cfg.Metrics.Path))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer shutdown(srv)
	}

	svc := build.NewService(opts...)
	eng, err := svc.NewEngine(cfg)
	if err != nil {
		return err
	}
	if err := rebuild(g, svc, eng)(g.Context, "startup"); err != nil {
		logger.Warn("Initial build failed", logfields.Error(err))
	}

	paths := []string{cfg.InputDir()}
	for _, p := range cfg.Watch.Paths {
		paths = append(paths, cfg.ResolvePath(p))
	}
	watcher := watch.New(paths, rebuild(g, svc, eng),
		watch.WithDebounce(cfg.Watch.Debounce.Std()),
		watch.WithRebuildInterval(cfg.Watch.RebuildInterval.Std()),
		watch.WithIgnored(cfg.OutputDir()),
		watch.WithLogger(logger),
	)
	return watcher.Run(g.Context)
}

func rebuild(g *Global, svc *build.Service, eng *engine.Engine) watch.RebuildFunc {
	return func(ctx context.Context, _ string) error {
		res, err := svc.Run(ctx, eng)
		if err != nil {
			return err
		}
		printSummary(g.Stdout, res)
		return nil
	}
}

func metricsServer(mc config.MetricsConfig, reg *prom.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(mc.Path, metrics.HTTPHandler(reg))
	return &http.Server{
		Addr:              mc.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
