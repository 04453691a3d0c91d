// Package bundle packs example source directories into single JSON bundles,
// unpacks them again, and builds the examples directory index.
package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/schema"
)

// DefaultDescriptorName is the per-example descriptor file name.
const DefaultDescriptorName = "$descriptor.json"

// OrderFileName is the fallback ordered file list used when no descriptor
// exists.
const OrderFileName = ".json-files"

// ErrNoDescriptor is returned when a directory has neither a descriptor nor
// an order file.
var ErrNoDescriptor = errors.New("no descriptor found")

// Descriptor lists the files of one example in bundle order.
type Descriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
}

var (
	descriptorSchema = schema.MustCompile("descriptor.json", `{
  "type": "object",
  "required": ["files"],
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"},
    "files": {"type": "array", "items": {"type": "string", "minLength": 1}}
  }
}`)
	orderSchema = schema.MustCompile("json-files.json", `{
  "type": "array",
  "minItems": 1,
  "items": {"type": "string", "minLength": 1}
}`)
	directorySchema = schema.MustCompile("examples-directory.json", `{
  "type": "array",
  "items": {"type": "string", "minLength": 1}
}`)
)

// ReadDescriptor loads the descriptor of the example in dir. Without a
// descriptor file the order file is used and the name defaults to id.
func ReadDescriptor(dir, id, descriptorName string) (Descriptor, error) {
	if descriptorName == "" {
		descriptorName = DefaultDescriptorName
	}
	p := filepath.Join(dir, descriptorName)
	data, err := os.ReadFile(p)
	switch {
	case err == nil:
		var d Descriptor
		if err := descriptorSchema.Decode(data, &d); err != nil {
			return Descriptor{}, lderrors.WrapError(err, lderrors.CategoryBundle, "malformed descriptor").
				WithContext("path", p).Build()
		}
		return d, nil
	case !errors.Is(err, fs.ErrNotExist):
		return Descriptor{}, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read descriptor").
			WithContext("path", p).Build()
	}

	p = filepath.Join(dir, OrderFileName)
	data, err = os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Descriptor{}, fmt.Errorf("%s: %w", dir, ErrNoDescriptor)
	}
	if err != nil {
		return Descriptor{}, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read order file").
			WithContext("path", p).Build()
	}
	var files []string
	if err := orderSchema.Decode(data, &files); err != nil {
		return Descriptor{}, lderrors.WrapError(err, lderrors.CategoryBundle, "malformed order file").
			WithContext("path", p).Build()
	}
	return Descriptor{Name: id, Files: files}, nil
}

// ReadDirectory loads the ordered example ids from the examples directory
// descriptor. It returns nil and no error when the file does not exist.
func ReadDirectory(examplesDir, descriptorName string) ([]string, error) {
	if descriptorName == "" {
		descriptorName = DefaultDescriptorName
	}
	p := filepath.Join(examplesDir, descriptorName)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read examples directory").
			WithContext("path", p).Build()
	}
	var ids []string
	if err := directorySchema.Decode(data, &ids); err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryBundle, "malformed examples directory").
			WithContext("path", p).Build()
	}
	return ids, nil
}
