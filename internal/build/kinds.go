package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/bundle"
	"git.home.luguber.info/inful/langdocs/internal/langs"
	"git.home.luguber.info/inful/langdocs/internal/manifest"
	"git.home.luguber.info/inful/langdocs/internal/output"
	"git.home.luguber.info/inful/langdocs/internal/sections"
	"git.home.luguber.info/inful/langdocs/internal/tutorial"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// kindResult is everything one kind of one language produced.
type kindResult struct {
	// resources are matrix paths in production order.
	resources []string
	// artifacts maps output paths onto source paths relative to the langs root.
	artifacts map[string][]string
	// sources maps source paths onto their fingerprints.
	sources  map[string]string
	warnings []error
}

func newKindResult() *kindResult {
	return &kindResult{artifacts: map[string][]string{}, sources: map[string]string{}}
}

// write stores v at rel and records the sources it came from.
func (r *kindResult) write(w *output.Writer, langsDir, rel string, v any, sources []string) error {
	if _, err := w.WriteJSON(rel, v); err != nil {
		return err
	}
	var list []string
	for _, src := range sources {
		relSrc, err := filepath.Rel(langsDir, src)
		if err != nil {
			relSrc = src
		}
		relSrc = filepath.ToSlash(relSrc)
		if _, ok := r.sources[relSrc]; !ok {
			fp, err := manifest.FingerprintFile(src)
			if err != nil {
				r.warnings = append(r.warnings, lderrors.WrapError(err, lderrors.CategoryFileSystem, "cannot fingerprint source").
					Warning().WithContext("path", src).Build())
				continue
			}
			r.sources[relSrc] = fp
		}
		list = append(list, relSrc)
	}
	r.artifacts[rel] = list
	return nil
}

func (d *Driver) buildKind(ctx context.Context, src langs.Source, kind langs.Kind) (*kindResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch kind {
	case langs.KindDocs:
		return d.buildDocs(src)
	case langs.KindTutorials:
		return d.buildTutorials(src)
	case langs.KindExamples:
		return d.buildExamples(src)
	default:
		return nil, lderrors.WrapError(ErrUnknownKind, lderrors.CategoryInternal, "cannot build kind").
			WithContext("kind", string(kind)).Build()
	}
}

// buildDocs writes docs/<lang>/api.json from the api directory, one
// docs/<lang>/guides/<name>.json per guide and the guide metadata.
func (d *Driver) buildDocs(src langs.Source) (*kindResult, error) {
	res := newKindResult()
	base := "docs/" + src.Lang + "/"

	if exists(src.API()) {
		page, warnings, err := d.aggregator.Directory(src.API())
		res.warnings = append(res.warnings, warnings...)
		if err != nil {
			res.warnings = append(res.warnings, asWarning(err))
		} else if p, ok := page.Get(); ok {
			p.Doc.Format = d.cfg.Output.DocFormat
			if err := res.write(d.writer, d.langsDir, base+"api.json", p.Doc, p.Sources); err != nil {
				return nil, err
			}
			res.resources = append(res.resources, "api")
		}
	}

	if exists(src.Guides()) {
		guides, warnings, err := d.aggregator.Guides(src.Guides())
		res.warnings = append(res.warnings, warnings...)
		if err != nil {
			res.warnings = append(res.warnings, asWarning(err))
		} else {
			var metaSources []string
			for _, g := range guides {
				g.Page.Doc.Format = d.cfg.Output.DocFormat
				if err := res.write(d.writer, d.langsDir, base+g.Resource()+".json", g.Page.Doc, g.Page.Sources); err != nil {
					return nil, err
				}
				res.resources = append(res.resources, g.Resource())
				metaSources = append(metaSources, g.Page.Sources...)
			}
			if err := res.write(d.writer, d.langsDir, base+"guides/"+langdocs.GuideMetadataFile, sections.Metadata(guides), metaSources); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// buildTutorials writes tutorials/<lang>/<lesson>.json per lesson and the
// tutorial directory.
func (d *Driver) buildTutorials(src langs.Source) (*kindResult, error) {
	res := newKindResult()
	set, warnings, err := d.tutorials.All(src.Tutorials())
	res.warnings = append(res.warnings, warnings...)
	if err != nil {
		res.warnings = append(res.warnings, asWarning(err))
		return res, nil
	}

	base := "tutorials/" + src.Lang + "/"
	for _, lesson := range set.Lessons {
		if err := res.write(d.writer, d.langsDir, base+lesson.Name+".json", lesson.File, lesson.Sources); err != nil {
			return nil, err
		}
		res.resources = append(res.resources, "tutorials/"+lesson.Name)
	}
	if directory, ok := set.Directory.Get(); ok {
		dirSource := filepath.Join(src.Tutorials(), tutorial.DirectoryFile)
		if err := res.write(d.writer, d.langsDir, base+tutorial.DirectoryFile, directory, []string{dirSource}); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// buildExamples writes examples/<lang>/<id>.json per example bundle and the
// examples directory.
func (d *Driver) buildExamples(src langs.Source) (*kindResult, error) {
	res := newKindResult()
	if !exists(src.Examples()) {
		return res, nil
	}
	col, warnings, err := bundle.PackAll(src.Examples(), d.cfg.Examples.Descriptor)
	res.warnings = append(res.warnings, warnings...)
	if err != nil {
		res.warnings = append(res.warnings, asWarning(err))
		return res, nil
	}

	base := "examples/" + src.Lang + "/"
	var all []string
	for _, b := range col.Bundles {
		sources := bundleSources(filepath.Join(src.Examples(), b.ID), b, d.descriptorName())
		if err := res.write(d.writer, d.langsDir, base+b.ID+".json", b, sources); err != nil {
			return nil, err
		}
		res.resources = append(res.resources, "examples/"+b.ID)
		all = append(all, sources...)
	}
	if directorySource := filepath.Join(src.Examples(), d.descriptorName()); exists(directorySource) {
		all = append(all, directorySource)
	}
	if err := res.write(d.writer, d.langsDir, base+langdocs.DirectoryFile, col.Directory, all); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Driver) descriptorName() string {
	if d.cfg.Examples.Descriptor == "" {
		return bundle.DefaultDescriptorName
	}
	return d.cfg.Examples.Descriptor
}

// bundleSources lists the files a bundle was packed from: its descriptor (or
// order file) and every packed file.
func bundleSources(dir string, b langdocs.ExampleBundle, descriptorName string) []string {
	var out []string
	for _, name := range []string{descriptorName, bundle.OrderFileName} {
		if p := filepath.Join(dir, name); exists(p) {
			out = append(out, p)
			break
		}
	}
	for _, f := range b.Files {
		out = append(out, filepath.Join(dir, filepath.FromSlash(f.FileName())))
	}
	sort.Strings(out)
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// asWarning downgrades a per-kind error to a warning.
func asWarning(err error) error {
	if ce, ok := lderrors.AsClassified(err); ok {
		b := lderrors.NewError(ce.Category(), ce.Message()).WithCause(ce.Cause()).WithHint(ce.Hint()).Warning()
		for k, v := range ce.Context() {
			b = b.WithContext(k, v)
		}
		return b.Build()
	}
	return lderrors.WrapError(err, lderrors.CategoryBuild, "skipping source").Warning().Build()
}
