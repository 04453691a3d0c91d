package langdocs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"git.home.luguber.info/inful/langdocs/pkg/foundation"
	"git.home.luguber.info/inful/langdocs/pkg/supportmatrix"
)

// Output tree layout.
const (
	SupportedFile     = "supported.json"
	GuideMetadataFile = "_metadata.json"
	DirectoryFile     = "directory.json"
)

// ErrCorrupt is returned when an artifact exists but cannot be decoded.
var ErrCorrupt = errors.New("langdocs: corrupt artifact")

// Resolver answers queries against a build output tree. Absence of a
// language or resource is reported as None, never as an error.
type Resolver struct {
	fsys fs.FS
}

// NewResolver returns a resolver reading the output tree in fsys.
func NewResolver(fsys fs.FS) *Resolver {
	return &Resolver{fsys: fsys}
}

// Supported loads supported.json. A tree without one yields an empty matrix.
func (r *Resolver) Supported() (*supportmatrix.Matrix, error) {
	data, err := fs.ReadFile(r.fsys, SupportedFile)
	if errors.Is(err, fs.ErrNotExist) {
		return supportmatrix.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", SupportedFile, err)
	}
	m, err := supportmatrix.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, SupportedFile, err)
	}
	return m, nil
}

// Languages lists every language that provides at least one resource.
func (r *Resolver) Languages() ([]string, error) {
	m, err := r.Supported()
	if err != nil {
		return nil, err
	}
	return m.Languages(), nil
}

// Resolve is the combined resource/category query.
func (r *Resolver) Resolve(resource, lang string) (supportmatrix.Resolution, error) {
	m, err := r.Supported()
	if err != nil {
		return supportmatrix.Resolution{}, err
	}
	return m.Resolve(resource, lang), nil
}

// Supports reports whether lang provides resource.
func (r *Resolver) Supports(resource, lang string) (bool, error) {
	m, err := r.Supported()
	if err != nil {
		return false, err
	}
	return m.Supports(resource, lang), nil
}

// Available lists the resources under category that lang provides.
func (r *Resolver) Available(category, lang string) (foundation.Option[[]string], error) {
	m, err := r.Supported()
	if err != nil {
		return foundation.None[[]string](), err
	}
	return m.Available(category, lang), nil
}

// Doc reads a rendered page: "api" or "guides/<name>". Names starting with
// an underscore are indexes, not pages. Pages the matrix does not list for
// lang are None even when an artifact is left on disk.
func (r *Resolver) Doc(lang, resource string) (foundation.Option[DocFile], error) {
	segments, err := supportmatrix.SplitPath(resource)
	if err != nil || strings.HasPrefix(segments[len(segments)-1], "_") {
		return foundation.None[DocFile](), nil
	}
	if ok, err := r.Supports(resource, lang); !ok || err != nil {
		return foundation.None[DocFile](), err
	}
	return readArtifact[DocFile](r.fsys, "docs", lang, resource+".json")
}

// Guide reads docs/<lang>/guides/<name>.json.
func (r *Resolver) Guide(lang, name string) (foundation.Option[DocFile], error) {
	if !validName(name) {
		return foundation.None[DocFile](), nil
	}
	return r.Doc(lang, "guides/"+name)
}

// Guides returns the guide directory of lang: guides with a title that the
// matrix lists for lang, ordered by ascending sort.
func (r *Resolver) Guides(lang string) (foundation.Option[[]GuideEntry], error) {
	meta, err := readArtifact[map[string]ResourceMetadata](r.fsys, "docs", lang, "guides/"+GuideMetadataFile)
	if err != nil || meta.IsNone() {
		return foundation.None[[]GuideEntry](), err
	}
	m, err := r.Supported()
	if err != nil {
		return foundation.None[[]GuideEntry](), err
	}
	entries := GuideDirectory(meta.Unwrap())
	listed := make([]GuideEntry, 0, len(entries))
	for _, e := range entries {
		if m.Supports(e.Resource, lang) {
			listed = append(listed, e)
		}
	}
	return foundation.Some(listed), nil
}

// Tutorial reads one lesson bundle.
func (r *Resolver) Tutorial(lang, lesson string) (foundation.Option[LessonFile], error) {
	if !validName(lesson) || lesson+".json" == DirectoryFile {
		return foundation.None[LessonFile](), nil
	}
	if ok, err := r.Supports("tutorials/"+lesson, lang); !ok || err != nil {
		return foundation.None[LessonFile](), err
	}
	return readArtifact[LessonFile](r.fsys, "tutorials", lang, lesson+".json")
}

// TutorialDirectory reads the lesson directory of lang.
func (r *Resolver) TutorialDirectory(lang string) (foundation.Option[[]LessonLookup], error) {
	return readArtifact[[]LessonLookup](r.fsys, "tutorials", lang, DirectoryFile)
}

// Example reads one example bundle.
func (r *Resolver) Example(lang, id string) (foundation.Option[ExampleBundle], error) {
	if !validName(id) || id+".json" == DirectoryFile {
		return foundation.None[ExampleBundle](), nil
	}
	if ok, err := r.Supports("examples/"+id, lang); !ok || err != nil {
		return foundation.None[ExampleBundle](), err
	}
	return readArtifact[ExampleBundle](r.fsys, "examples", lang, id+".json")
}

// ExamplesDirectory reads the example summaries of lang.
func (r *Resolver) ExamplesDirectory(lang string) (foundation.Option[[]ExampleSummary], error) {
	return readArtifact[[]ExampleSummary](r.fsys, "examples", lang, DirectoryFile)
}

func readArtifact[T any](fsys fs.FS, section, lang, rel string) (foundation.Option[T], error) {
	if !validName(lang) {
		return foundation.None[T](), nil
	}
	name := path.Join(section, lang, rel)
	if !fs.ValidPath(name) || name != section+"/"+lang+"/"+rel {
		return foundation.None[T](), nil
	}
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return foundation.None[T](), nil
	}
	if err != nil {
		return foundation.None[T](), fmt.Errorf("read %s: %w", name, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return foundation.None[T](), fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}
	return foundation.Some(v), nil
}

func validName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
