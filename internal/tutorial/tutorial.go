// Package tutorial bundles tutorial lesson directories into lesson files.
package tutorial

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/markdown"
	"git.home.luguber.info/inful/langdocs/internal/schema"
	"git.home.luguber.info/inful/langdocs/pkg/foundation"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Part file names inside a lesson directory.
const (
	LessonPart    = "lesson.json"
	SolvedPart    = "solved.json"
	MarkdownPart  = "lesson.md"
	DirectoryFile = "directory.json"
)

var directorySchema = schema.MustCompile("tutorial-directory.json", `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["lessonName", "internalName"],
    "properties": {
      "lessonName": {"type": "string"},
      "internalName": {"type": "string", "minLength": 1}
    }
  }
}`)

// Lesson is one bundled lesson.
type Lesson struct {
	Name string
	File langdocs.LessonFile
	// Sources lists the part files that were read.
	Sources []string
}

// Set is every lesson of one language plus its directory.
type Set struct {
	Lessons []Lesson
	// Directory is None when the language has no directory.json.
	Directory foundation.Option[[]langdocs.LessonLookup]
}

// Bundler reads lesson directories.
type Bundler struct {
	renderer *markdown.Renderer
}

// NewBundler renders lesson.md parts with renderer.
func NewBundler(renderer *markdown.Renderer) *Bundler {
	return &Bundler{renderer: renderer}
}

// All bundles every lesson directory below dir, in name order. A missing dir
// yields an empty set.
func (b *Bundler) All(dir string) (Set, []error, error) {
	set := Set{Directory: foundation.None[[]langdocs.LessonLookup]()}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil, nil
	}
	if err != nil {
		return set, nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read tutorials directory").
			WithContext("path", dir).Build()
	}

	var warnings []error
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		lesson, warn := b.Lesson(filepath.Join(dir, e.Name()))
		if warn != nil {
			warnings = append(warnings, warn)
		}
		if l, ok := lesson.Get(); ok {
			set.Lessons = append(set.Lessons, l)
		}
	}

	directory, err := ReadDirectory(filepath.Join(dir, DirectoryFile))
	if err != nil {
		warnings = append(warnings, lderrors.WrapError(err, lderrors.CategoryBundle, "skipping tutorial directory").
			Warning().WithContext("path", filepath.Join(dir, DirectoryFile)).Build())
	} else {
		set.Directory = directory
	}
	return set, warnings, nil
}

// Lesson bundles one lesson directory. It returns None when the directory
// has no parts. A malformed part skips the lesson and is returned as a
// warning.
func (b *Bundler) Lesson(dir string) (foundation.Option[Lesson], error) {
	name := filepath.Base(dir)
	lesson := Lesson{Name: name}
	skip := func(err error, part string) (foundation.Option[Lesson], error) {
		return foundation.None[Lesson](), lderrors.WrapError(err, lderrors.CategoryBundle, "skipping lesson").
			Warning().WithContext("lesson", name).WithContext("file", part).Build()
	}

	for _, part := range []string{LessonPart, SolvedPart} {
		raw, ok, err := readPart(dir, part)
		if err != nil {
			return skip(err, part)
		}
		if !ok {
			continue
		}
		if !json.Valid(raw) {
			return skip(errors.New("malformed JSON"), part)
		}
		compact, err := compactJSON(raw)
		if err != nil {
			return skip(err, part)
		}
		if part == LessonPart {
			lesson.File.Lesson = compact
		} else {
			lesson.File.Solved = compact
		}
		lesson.Sources = append(lesson.Sources, filepath.Join(dir, part))
	}

	source, ok, err := readPart(dir, MarkdownPart)
	if err != nil {
		return skip(err, MarkdownPart)
	}
	if ok {
		page, err := b.renderer.Render(source)
		if err != nil {
			return skip(err, MarkdownPart)
		}
		lesson.File.Markdown = page.HTML
		lesson.Sources = append(lesson.Sources, filepath.Join(dir, MarkdownPart))
	}

	if lesson.File.IsEmpty() {
		return foundation.None[Lesson](), nil
	}
	return foundation.Some(lesson), nil
}

// ReadDirectory loads and validates a tutorial directory file. It returns
// None when the file does not exist.
func ReadDirectory(path string) (foundation.Option[[]langdocs.LessonLookup], error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return foundation.None[[]langdocs.LessonLookup](), nil
	}
	if err != nil {
		return foundation.None[[]langdocs.LessonLookup](), lderrors.WrapError(err, lderrors.CategoryFileSystem, "read tutorial directory").
			WithContext("path", path).Build()
	}
	entries := []langdocs.LessonLookup{}
	if err := directorySchema.Decode(data, &entries); err != nil {
		return foundation.None[[]langdocs.LessonLookup](), err
	}
	return foundation.Some(entries), nil
}

func readPart(dir, part string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, part))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
