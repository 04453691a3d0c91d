package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/langdocs/internal/api"
	"git.home.luguber.info/inful/langdocs/internal/build"
	"git.home.luguber.info/inful/langdocs/internal/metrics"
	"git.home.luguber.info/inful/langdocs/internal/watch"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	BuildCmd `embed:""`

	Serve bool   `help:"Also serve the output API while watching"`
	Addr  string `help:"Listen address (overrides serve.addr)"`
}

func (c *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	c.apply(cfg)
	if c.Addr != "" {
		cfg.Serve.Addr = c.Addr
	}
	logger := root.Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	driver, svc := newDriver(cfg, logger, recorder)
	defer svc.Close()

	w := watch.New(cfg.Source.LangsDir, driver, watch.Options{
		Debounce:            cfg.Watch.Debounce,
		FullRebuildInterval: cfg.Watch.FullRebuildInterval,
		OnReport: func(r *build.Report, _ error) {
			if r != nil {
				recorder.IncRebuild(string(r.Trigger))
			}
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	if c.Serve {
		opts := []api.Option{api.WithLogger(logger), api.WithMetrics(metrics.HTTPHandler(reg))}
		if svc.history != nil {
			opts = append(opts, api.WithRuns(svc.history))
		}
		srv := api.NewServer(cfg.Serve.Addr, langdocs.NewResolver(os.DirFS(cfg.Output.Directory)), opts...)
		g.Go(func() error { return srv.Run(gctx) })
	}
	err = g.Wait()
	logger.Info("Watch stopped")
	return err
}
