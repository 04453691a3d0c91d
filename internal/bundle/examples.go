package bundle

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// ErrEmptyBundle is returned when a bundle file carries no files.
var ErrEmptyBundle = errors.New("bundle has no files")

// Collection is every packed example of one language plus its directory.
type Collection struct {
	Bundles   []langdocs.ExampleBundle
	Directory []langdocs.ExampleSummary
}

// PackAll packs every example directory below examplesDir. Examples that
// cannot be packed are skipped with a warning. The directory follows the
// order of the examples directory descriptor when present, otherwise the
// order of the packed examples.
func PackAll(examplesDir, descriptorName string) (Collection, []error, error) {
	entries, err := os.ReadDir(examplesDir)
	if err != nil {
		return Collection{}, nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read examples directory").
			WithContext("path", examplesDir).Build()
	}

	var (
		col      Collection
		warnings []error
		packed   = map[string]langdocs.ExampleSummary{}
	)
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		id := e.Name()
		b, warn, err := Pack(filepath.Join(examplesDir, id), id, descriptorName)
		if err != nil {
			warnings = append(warnings, lderrors.WrapError(err, lderrors.CategoryBundle, "skipping example").
				Warning().WithContext("example", id).Build())
			continue
		}
		warnings = append(warnings, warn...)
		col.Bundles = append(col.Bundles, b)
		packed[id] = b.Summary()
	}

	ids, err := ReadDirectory(examplesDir, descriptorName)
	if err != nil {
		warnings = append(warnings, lderrors.WrapError(err, lderrors.CategoryBundle, "ignoring examples directory order").
			Warning().WithContext("path", examplesDir).Build())
		ids = nil
	}
	col.Directory = []langdocs.ExampleSummary{}
	if ids == nil {
		for _, b := range col.Bundles {
			col.Directory = append(col.Directory, b.Summary())
		}
		return col, warnings, nil
	}
	for _, id := range ids {
		summary, ok := packed[id]
		if !ok {
			warnings = append(warnings, lderrors.BundleError("examples directory lists unknown example").
				Warning().WithContext("example", id).Build())
			continue
		}
		col.Directory = append(col.Directory, summary)
	}
	return col, warnings, nil
}

// ReadBundle decodes a packed example file. The id defaults to the file name
// without extension when the bundle does not carry one.
func ReadBundle(path string) (langdocs.ExampleBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return langdocs.ExampleBundle{}, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read bundle").
			WithContext("path", path).Build()
	}
	var b langdocs.ExampleBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return langdocs.ExampleBundle{}, lderrors.WrapError(err, lderrors.CategoryBundle, "malformed bundle").
			WithContext("path", path).Build()
	}
	if len(b.Files) == 0 {
		return langdocs.ExampleBundle{}, lderrors.WrapError(ErrEmptyBundle, lderrors.CategoryBundle, "nothing to unpack").
			WithContext("path", path).Build()
	}
	if b.ID == "" {
		b.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return b, nil
}

// UnpackFile unpacks the bundle at path into destRoot/<id> and returns that
// directory.
func UnpackFile(path, destRoot, descriptorName string) (string, error) {
	b, err := ReadBundle(path)
	if err != nil {
		return "", err
	}
	if !validFileName(b.ID) || strings.Contains(b.ID, "/") {
		return "", lderrors.BundleError("invalid example id").WithContext("id", b.ID).Build()
	}
	dir := filepath.Join(destRoot, b.ID)
	return dir, Unpack(b, dir, descriptorName)
}
