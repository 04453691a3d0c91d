package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/langdocs/internal/bundle"
	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/logfields"
)

// UnpackCmd implements the 'unpack' command.
type UnpackCmd struct {
	Bundles []string `arg:"" help:"Example bundle files (examples/<lang>/<id>.json)"`
	Lang    string   `short:"l" help:"Language whose examples directory receives the sources" required:""`
	Dest    string   `short:"d" help:"Destination directory (default <langs_dir>/<lang>/examples)"`
}

func (u *UnpackCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	dest := u.Dest
	if dest == "" {
		dest = filepath.Join(cfg.Source.LangsDir, u.Lang, "examples")
	}
	for _, path := range u.Bundles {
		dir, err := bundle.UnpackFile(path, dest, cfg.Examples.Descriptor)
		if err != nil {
			return lderrors.WrapError(err, lderrors.CategoryBundle, "unpack failed").
				WithContext("path", path).Build()
		}
		root.Logger().Debug("Unpacked bundle", logfields.File(path), logfields.Path(dir))
		_, _ = fmt.Fprintf(g.out(), "%s -> %s\n", path, dir)
	}
	return nil
}
