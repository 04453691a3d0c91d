package sections

import (
	"os"
	"path/filepath"
	"strings"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Guide is one guide page.
type Guide struct {
	Name string
	Page Page
}

// Resource is the matrix path of the guide.
func (g Guide) Resource() string { return "guides/" + g.Name }

// Guides builds one page per guides/<name>.md file and one aggregated page
// per guides/<name>/ directory, in directory order. When a file and a
// directory share a name the first one wins and the other is reported.
func (a *Aggregator) Guides(dir string) ([]Guide, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read guides directory").
			WithContext("path", dir).Build()
	}

	var (
		guides   []Guide
		warnings []error
		seen     = map[string]bool{}
	)
	for _, e := range entries {
		var name string
		switch {
		case e.IsDir():
			name = e.Name()
		case e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".md"):
			name = strings.TrimSuffix(e.Name(), ".md")
		default:
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if seen[name] {
			warnings = append(warnings, lderrors.RenderError("duplicate guide name, skipping").
				WithContext("path", path).Build())
			continue
		}

		var (
			page  = a.File
			found bool
			g     Guide
		)
		if e.IsDir() {
			page = a.Directory
		}
		opt, warn, err := page(path)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		warnings = append(warnings, warn...)
		if g.Page, found = opt.Get(); !found {
			continue
		}
		g.Name = name
		seen[name] = true
		guides = append(guides, g)
	}
	return guides, warnings, nil
}

// Metadata builds the _metadata.json content for a set of guides.
func Metadata(guides []Guide) map[string]langdocs.ResourceMetadata {
	meta := make(map[string]langdocs.ResourceMetadata, len(guides))
	for _, g := range guides {
		meta[g.Name] = langdocs.ResourceMetadata{
			Resource:    g.Resource(),
			Title:       g.Page.Attributes.Title,
			Description: g.Page.Attributes.Description,
			Sort:        g.Page.Attributes.Sort,
		}
	}
	return meta
}
