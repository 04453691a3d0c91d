package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/langdocs/internal/api"
	"git.home.luguber.info/inful/langdocs/internal/history"
	"git.home.luguber.info/inful/langdocs/internal/metrics"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr   string `help:"Listen address (overrides serve.addr)"`
	Output string `short:"o" help:"Output directory to serve (overrides output.directory)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Serve.Addr = s.Addr
	}
	if s.Output != "" {
		cfg.Output.Directory = s.Output
	}
	logger := root.Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []api.Option{api.WithLogger(logger), api.WithMetrics(metrics.HTTPHandler(reg))}
	historyPath := filepath.Join(cfg.State.Directory, history.FileName)
	if _, statErr := os.Stat(historyPath); statErr == nil {
		store, err := history.Open(historyPath)
		if err != nil {
			logger.Warn("Build history unavailable", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, api.WithRuns(store))
		}
	}

	srv := api.NewServer(cfg.Serve.Addr, langdocs.NewResolver(os.DirFS(cfg.Output.Directory)), opts...)
	return srv.Run(ctx)
}
