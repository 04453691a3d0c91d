package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/langdocs/internal/translation"
)

// TodosCmd implements the 'todos' command.
type TodosCmd struct {
	Reference string `short:"r" help:"Reference language (overrides source.reference_language)"`
	Write     bool   `help:"Update the Todo sections of each language README"`
	JSON      bool   `name:"json" help:"Print the report as JSON"`
}

func (t *TodosCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	reference := cfg.Source.ReferenceLanguage
	if t.Reference != "" {
		reference = t.Reference
	}

	reporter, err := translation.Open(cfg.Source.LangsDir, reference)
	if err != nil {
		return err
	}
	report, err := reporter.Build(context.Background())
	if err != nil {
		return err
	}

	out := g.out()
	if t.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, lr := range report.Languages {
			_, _ = fmt.Fprintf(out, "%s: %d outdated, %d missing\n", lr.Lang, len(lr.Updates), len(lr.Missing))
			for _, u := range lr.Updates {
				_, _ = fmt.Fprintf(out, "  outdated  %s (%s newer than %s)\n", u.File,
					u.Reference.Date.Format("2006-01-02"), u.Lang.Date.Format("2006-01-02"))
			}
			for _, f := range lr.Missing {
				_, _ = fmt.Fprintf(out, "  missing   %s\n", f)
			}
		}
	}

	if t.Write {
		changed, err := translation.WriteReadmes(cfg.Source.LangsDir, report)
		for _, p := range changed {
			root.Logger().Info("Updated translator notes", "path", p)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
