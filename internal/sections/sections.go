// Package sections merges the rendered Markdown files of a directory into
// one ordered page and builds guide pages with their metadata.
package sections

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/frontmatter"
	"git.home.luguber.info/inful/langdocs/internal/markdown"
	"git.home.luguber.info/inful/langdocs/pkg/foundation"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Page is the aggregate of one or more Markdown files.
type Page struct {
	Doc langdocs.DocFile
	// Attributes come from the first file after sorting.
	Attributes frontmatter.Attributes
	// Sources lists the rendered files in output order.
	Sources []string
}

// Aggregator renders and merges Markdown files.
type Aggregator struct {
	renderer     *markdown.Renderer
	sectionClass string
}

// NewAggregator wraps every file's HTML in a section element carrying
// sectionClass (no class attribute when empty).
func NewAggregator(renderer *markdown.Renderer, sectionClass string) *Aggregator {
	return &Aggregator{renderer: renderer, sectionClass: sectionClass}
}

type rendered struct {
	path string
	page markdown.Page
}

// Directory aggregates every *.md file directly inside dir. Files are read in
// name order and stable-sorted by their sort attribute. Unreadable or
// malformed files are skipped and reported as warnings. It returns None when
// no file could be rendered.
func (a *Aggregator) Directory(dir string) (foundation.Option[Page], []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return foundation.None[Page](), nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read directory").
			WithContext("path", dir).Build()
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".md") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return a.aggregate(paths)
}

// File renders a single Markdown file as a page.
func (a *Aggregator) File(path string) (foundation.Option[Page], []error, error) {
	return a.aggregate([]string{path})
}

func (a *Aggregator) aggregate(paths []string) (foundation.Option[Page], []error, error) {
	var warnings []error
	var pages []rendered
	for _, p := range paths {
		source, err := os.ReadFile(p)
		if err != nil {
			warnings = append(warnings, lderrors.WrapError(err, lderrors.CategoryFileSystem, "skipping unreadable markdown file").
				Warning().WithContext("path", p).Build())
			continue
		}
		page, err := a.renderer.Render(source)
		if err != nil {
			warnings = append(warnings, lderrors.WrapError(err, lderrors.CategoryRender, "skipping markdown file").
				Warning().WithContext("path", p).Build())
			continue
		}
		pages = append(pages, rendered{path: p, page: page})
	}
	if len(pages) == 0 {
		return foundation.None[Page](), warnings, nil
	}

	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].page.Attributes.Sort < pages[j].page.Attributes.Sort
	})

	var body strings.Builder
	out := Page{Attributes: pages[0].page.Attributes}
	out.Doc.Sections = []langdocs.Section{}
	for _, r := range pages {
		body.WriteString(a.open())
		body.WriteString(r.page.HTML)
		body.WriteString("</section>")
		out.Doc.Sections = append(out.Doc.Sections, r.page.Sections...)
		out.Sources = append(out.Sources, r.path)
	}
	out.Doc.HTML = body.String()
	return foundation.Some(out), warnings, nil
}

func (a *Aggregator) open() string {
	if a.sectionClass == "" {
		return "<section>"
	}
	return fmt.Sprintf(`<section class="%s">`, html.EscapeString(a.sectionClass))
}
