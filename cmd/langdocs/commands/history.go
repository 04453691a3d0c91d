package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"20"`
	ID    string `arg:"" optional:"" help:"Show a single run with its warnings"`
	JSON  bool   `name:"json" help:"Print runs as JSON"`
	Prune int    `help:"Keep only the newest N runs (0 keeps all)" default:"0"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.State.Directory, history.FileName)
	if _, err := os.Stat(path); err != nil {
		return lderrors.NotFoundError("no build history recorded").WithContext("path", path).Build()
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.Prune > 0 {
		n, err := store.Prune(ctx, h.Prune)
		if err != nil {
			return err
		}
		root.Logger().Info("Pruned build history", "removed", n)
	}

	out := g.out()
	if h.ID != "" {
		run, err := store.Get(ctx, h.ID)
		if err != nil {
			return err
		}
		r, ok := run.Get()
		if !ok {
			return lderrors.NotFoundError("run not found").WithContext("id", h.ID).Build()
		}
		if h.JSON {
			return writeJSON(out, r)
		}
		printRun(out, r)
		for _, w := range r.Warnings {
			_, _ = fmt.Fprintf(out, "  [%s] %s\n", w.Category, w.Message)
		}
		return nil
	}

	runs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		return writeJSON(out, runs)
	}
	for _, r := range runs {
		printRun(out, r)
	}
	return nil
}

func printRun(w io.Writer, r history.Run) {
	_, _ = fmt.Fprintf(w, "%s  %s  %-8s %-8s %6s  %d artifacts, %d changed\n",
		r.ID, r.Started.Local().Format(time.DateTime), r.Trigger, r.Status,
		r.Duration().Round(time.Millisecond), r.Artifacts, r.Changed)
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
