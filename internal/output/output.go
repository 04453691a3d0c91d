// Package output writes build artifacts as deterministic JSON.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
)

// Change describes what a write did to the file on disk.
type Change string

const (
	ChangeCreated   Change = "created"
	ChangeUpdated   Change = "updated"
	ChangeUnchanged Change = "unchanged"
)

// Encode renders v as JSON without HTML escaping, indented with two spaces
// when pretty, and terminated by a newline. Map keys are sorted by
// encoding/json, so equal values always produce equal bytes.
func Encode(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryInternal, "encode json").Build()
	}
	return buf.Bytes(), nil
}

// Writer writes JSON artifacts below a root directory. Writes of identical
// content leave the existing file untouched. It is safe for concurrent use
// as long as callers write distinct paths.
type Writer struct {
	root   string
	pretty bool

	mu      sync.Mutex
	touched map[string]Change
}

// NewWriter returns a writer rooted at root.
func NewWriter(root string, pretty bool) *Writer {
	return &Writer{root: root, pretty: pretty, touched: map[string]Change{}}
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// Path maps a slash-separated artifact path onto the filesystem.
func (w *Writer) Path(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// WriteJSON encodes v and stores it at rel.
func (w *Writer) WriteJSON(rel string, v any) (Change, error) {
	data, err := Encode(v, w.pretty)
	if err != nil {
		return "", err
	}
	return w.WriteBytes(rel, data)
}

// WriteBytes stores data at rel via a temporary file and rename.
func (w *Writer) WriteBytes(rel string, data []byte) (Change, error) {
	if !validRel(rel) {
		return "", lderrors.InternalError("invalid output path").WithContext("path", rel).Build()
	}
	target := w.Path(rel)

	change := ChangeCreated
	existing, err := os.ReadFile(target)
	switch {
	case err == nil && bytes.Equal(existing, data):
		w.record(rel, ChangeUnchanged)
		return ChangeUnchanged, nil
	case err == nil:
		change = ChangeUpdated
	case !errors.Is(err, fs.ErrNotExist):
		return "", lderrors.WrapError(err, lderrors.CategoryFileSystem, "read existing output").
			WithContext("path", target).Build()
	}

	if err := WriteFileAtomic(target, data); err != nil {
		return "", err
	}
	w.record(rel, change)
	return change, nil
}

func (w *Writer) record(rel string, c Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touched[rel] = c
}

// Touched returns every path written since the last Reset, sorted, with the
// change each write made.
func (w *Writer) Touched() map[string]Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]Change, len(w.touched))
	for k, v := range w.touched {
		out[k] = v
	}
	return out
}

// Changed lists the touched paths whose content changed, sorted.
func (w *Writer) Changed() []string {
	var out []string
	for rel, c := range w.Touched() {
		if c != ChangeUnchanged {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}

// Reset forgets the touched set.
func (w *Writer) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touched = map[string]Change{}
}

// Prune removes every .json file below the root that was not touched since
// the last Reset and returns the removed paths, sorted. Empty directories
// left behind are removed as well.
func (w *Writer) Prune() ([]string, error) {
	touched := w.Touched()
	var removed []string
	var dirs []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == w.root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if p != w.root {
				dirs = append(dirs, p)
			}
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasSuffix(rel, ".json") {
			return nil
		}
		if _, ok := touched[rel]; ok {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		removed = append(removed, rel)
		return nil
	})
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "prune output").
			WithContext("path", w.root).Build()
	}
	// deepest first
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		_ = os.Remove(d) // fails unless empty
	}
	sort.Strings(removed)
	return removed, nil
}

// WriteFileAtomic writes data to a temporary sibling and renames it over
// path, creating parent directories as needed.
func WriteFileAtomic(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "create output directory").
			WithContext("path", target).Build()
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "create temp file").
			WithContext("path", target).Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "write temp file").
			WithContext("path", target).Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "close temp file").
			WithContext("path", target).Build()
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "chmod temp file").
			WithContext("path", target).Build()
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "rename output").
			WithContext("path", target).Build()
	}
	return nil
}

func validRel(rel string) bool {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return false
	}
	clean := path.Clean(rel)
	return clean == rel && clean != ".." && !strings.HasPrefix(clean, "../")
}
