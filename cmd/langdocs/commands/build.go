package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/langdocs/internal/build"
	"git.home.luguber.info/inful/langdocs/internal/config"
	"git.home.luguber.info/inful/langdocs/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output    string   `short:"o" help:"Output directory (overrides output.directory)"`
	Langs     string   `name:"langs-dir" help:"Langs source directory (overrides source.langs_dir)"`
	Languages []string `short:"l" name:"lang" help:"Build only these languages (repeatable)"`
	Clean     bool     `help:"Remove artifacts this build did not write"`
	Pretty    bool     `help:"Indent JSON output"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	b.apply(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	driver, svc := newDriver(cfg, root.Logger(), metrics.NoopRecorder{})
	defer svc.Close()

	report, err := driver.Build(ctx)
	if err != nil {
		return err
	}
	printReport(g.out(), report)
	return nil
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Langs != "" {
		cfg.Source.LangsDir = b.Langs
	}
	if len(b.Languages) > 0 {
		cfg.Source.Languages = b.Languages
	}
	if b.Clean {
		cfg.Output.Clean = true
	}
	if b.Pretty {
		cfg.Output.Pretty = true
	}
}

func printReport(w io.Writer, r *build.Report) {
	_, _ = fmt.Fprintf(w, "Build %s: %s\n", r.BuildID, r.Status)
	_, _ = fmt.Fprintf(w, "  languages: %s\n", joinOr(r.Languages, "none"))
	_, _ = fmt.Fprintf(w, "  artifacts: %d (%d changed, %d removed)\n", r.Artifacts, len(r.Changed), len(r.Removed))
	_, _ = fmt.Fprintf(w, "  warnings:  %d\n", len(r.Warnings))
	_, _ = fmt.Fprintf(w, "  duration:  %s\n", r.Duration.Round(1e6))
}
