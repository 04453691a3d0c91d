package bundle

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/output"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Pack reads the files listed by the example's descriptor, in order, and
// returns the bundle. Missing files and files with an unknown extension are
// skipped and reported as warnings.
func Pack(dir, id, descriptorName string) (langdocs.ExampleBundle, []error, error) {
	desc, err := ReadDescriptor(dir, id, descriptorName)
	if err != nil {
		return langdocs.ExampleBundle{}, nil, err
	}

	b := langdocs.ExampleBundle{
		ID:          id,
		Name:        desc.Name,
		Description: desc.Description,
		Files:       []langdocs.ExampleFile{},
	}
	var warnings []error
	for _, name := range desc.Files {
		if !validFileName(name) {
			warnings = append(warnings, lderrors.BundleError("skipping file outside the example directory").
				Warning().WithContext("example", id).WithContext("file", name).Build())
			continue
		}
		base, ft := langdocs.SplitFileName(name)
		fileType, ok := ft.Get()
		if !ok {
			warnings = append(warnings, lderrors.BundleError("skipping file with unknown extension").
				Warning().WithContext("example", id).WithContext("file", name).Build())
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			warnings = append(warnings, lderrors.WrapError(err, lderrors.CategoryFileSystem, "skipping unreadable example file").
				Warning().WithContext("example", id).WithContext("file", name).Build())
			continue
		}
		b.Files = append(b.Files, langdocs.ExampleFile{Name: base, Type: fileType, Content: string(content)})
	}
	return b, warnings, nil
}

// Unpack writes every file of b into dir as <name>.<type> (jsx when the
// type is empty) together with a descriptor, so that Pack(dir) reproduces b.
func Unpack(b langdocs.ExampleBundle, dir, descriptorName string) error {
	if descriptorName == "" {
		descriptorName = DefaultDescriptorName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "create example directory").
			WithContext("path", dir).Build()
	}

	desc := Descriptor{Name: b.Name, Description: b.Description, Files: make([]string, 0, len(b.Files))}
	for _, f := range b.Files {
		name := f.FileName()
		if !validFileName(name) {
			return lderrors.BundleError("refusing to write file outside the example directory").
				WithContext("file", name).Build()
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return lderrors.WrapError(err, lderrors.CategoryFileSystem, "create example directory").
				WithContext("path", target).Build()
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return lderrors.WrapError(err, lderrors.CategoryFileSystem, "write example file").
				WithContext("path", target).Build()
		}
		desc.Files = append(desc.Files, name)
	}

	data, err := output.Encode(desc, true)
	if err != nil {
		return err
	}
	p := filepath.Join(dir, descriptorName)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "write descriptor").
			WithContext("path", p).Build()
	}
	return nil
}

// validFileName accepts slash-separated relative names without "..".
func validFileName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	clean := path.Clean(name)
	return clean == name && clean != "." && !strings.HasPrefix(clean, "../") && clean != ".."
}
