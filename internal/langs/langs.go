// Package langs discovers the language source directories of a langs tree.
package langs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
)

// Kind is a unit of incremental rebuild.
type Kind string

const (
	KindDocs      Kind = "docs"
	KindTutorials Kind = "tutorials"
	KindExamples  Kind = "examples"
)

// Kinds lists every kind in build order.
var Kinds = []Kind{KindDocs, KindTutorials, KindExamples}

// Source is the directory layout of one language.
type Source struct {
	Lang string
	Root string
}

func (s Source) API() string       { return filepath.Join(s.Root, "api") }
func (s Source) Guides() string    { return filepath.Join(s.Root, "guides") }
func (s Source) Tutorials() string { return filepath.Join(s.Root, "tutorials") }
func (s Source) Examples() string  { return filepath.Join(s.Root, "examples") }

// Discover lists the language directories below root, sorted by name.
// Directories whose name is not a BCP 47 tag are skipped and reported as
// warnings. When only is non-empty, languages not in it are ignored.
func Discover(root string, only []string) ([]Source, []error, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read langs directory").
			Fatal().WithContext("path", root).Build()
	}

	allowed := map[string]bool{}
	for _, l := range only {
		allowed[l] = true
	}

	var (
		sources  []Source
		warnings []error
	)
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		if !Valid(name) {
			warnings = append(warnings, lderrors.ValidationError("skipping directory that is not a language tag").
				Warning().WithContext("path", filepath.Join(root, name)).
				WithHint("rename it to a BCP 47 tag such as en or pt-BR, or prefix it with _").Build())
			continue
		}
		sources = append(sources, Source{Lang: name, Root: filepath.Join(root, name)})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Lang < sources[j].Lang })
	return sources, warnings, nil
}

// Valid reports whether name parses as a language tag.
func Valid(name string) bool {
	_, err := language.Parse(name)
	return err == nil
}

// Classify maps a path relative to the langs root onto its language and
// kind. Paths below tutorials/ are tutorials, below examples/ examples, and
// everything else docs.
func Classify(rel string) (string, Kind, bool) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	if len(parts) == 0 || parts[0] == "." || parts[0] == ".." || parts[0] == "" {
		return "", "", false
	}
	lang := parts[0]
	if len(parts) == 1 {
		return lang, KindDocs, true
	}
	switch parts[1] {
	case "tutorials":
		return lang, KindTutorials, true
	case "examples":
		return lang, KindExamples, true
	default:
		return lang, KindDocs, true
	}
}
