package translation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/output"
)

// Markers delimit the generated sections of a language README.
const (
	UpdatesStart = "<!-- langdocs:updates:start -->"
	UpdatesEnd   = "<!-- langdocs:updates:end -->"
	MissingStart = "<!-- langdocs:missing:start -->"
	MissingEnd   = "<!-- langdocs:missing:end -->"
)

const readmeTemplate = `## Translator Notes

## Todo

### Updates
These files exist for this language, but may need to be updated to reflect the newest changes.

` + UpdatesStart + "\n" + UpdatesEnd + `

### Missing Files
These files haven't been created yet for this language.

` + MissingStart + "\n" + MissingEnd + "\n"

// UpdatesTable renders the outdated files of lr as a Markdown table. Links
// are relative to the language directory.
func UpdatesTable(lr LanguageReport, reference string) string {
	if len(lr.Updates) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "| File | Reference File | Last Updated (%s) | Last Updated (%s) |\n",
		strings.ToUpper(reference), strings.ToUpper(lr.Lang))
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, u := range lr.Updates {
		fmt.Fprintf(&b, "| [%s](%s) | [%s](%s) | %s | %s |\n",
			u.File, u.File,
			u.File, path.Join("..", reference, u.File),
			commitCell(u.Reference), commitCell(u.Lang))
	}
	return b.String()
}

// MissingTable renders the missing files of lr grouped by directory.
func MissingTable(lr LanguageReport, reference string) string {
	if len(lr.Missing) == 0 {
		return ""
	}
	var (
		order  []string
		groups = map[string][]string{}
	)
	for _, f := range lr.Missing {
		dir := path.Dir(f)
		if dir == "." {
			dir = ""
		}
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], f)
	}

	var b strings.Builder
	b.WriteString("| Resource Name | Reference Files |\n")
	b.WriteString("| --- | --- |\n")
	for _, dir := range order {
		links := make([]string, 0, len(groups[dir]))
		for _, f := range groups[dir] {
			links = append(links, fmt.Sprintf("[%s](%s)", f, path.Join("..", reference, f)))
		}
		fmt.Fprintf(&b, "| %s | %s |\n", dir, strings.Join(links, ", "))
	}
	return b.String()
}

func commitCell(c Commit) string {
	if c.Hash == "" {
		return "untracked"
	}
	return fmt.Sprintf("%s (%s)", c.Date.Format("2006-01-02"), c.Short())
}

// WriteReadmes updates the generated sections of every language README in
// the report, creating the README from a template when it does not exist.
// It returns the paths of the files that changed.
func WriteReadmes(langsDir string, report *Report) ([]string, error) {
	var changed []string
	for _, lr := range report.Languages {
		p := filepath.Join(langsDir, lr.Lang, ReadmeFile)
		data, err := os.ReadFile(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			data = []byte(readmeTemplate)
		case err != nil:
			return changed, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read README").
				WithContext("path", p).Build()
		}

		content := string(data)
		content, err = replaceBetween(content, UpdatesStart, UpdatesEnd, UpdatesTable(lr, report.Reference))
		if err != nil {
			return changed, lderrors.WrapError(err, lderrors.CategoryValidation, "update README").WithContext("path", p).Build()
		}
		content, err = replaceBetween(content, MissingStart, MissingEnd, MissingTable(lr, report.Reference))
		if err != nil {
			return changed, lderrors.WrapError(err, lderrors.CategoryValidation, "update README").WithContext("path", p).Build()
		}
		if content == string(data) {
			if _, statErr := os.Stat(p); statErr == nil {
				continue
			}
		}
		if err := output.WriteFileAtomic(p, []byte(content)); err != nil {
			return changed, lderrors.WrapError(err, lderrors.CategoryFileSystem, "write README").
				WithContext("path", p).Build()
		}
		changed = append(changed, p)
	}
	return changed, nil
}

// replaceBetween swaps the text between start and end markers. A README
// without the markers gets them appended.
func replaceBetween(content, start, end, body string) (string, error) {
	i := strings.Index(content, start)
	j := strings.Index(content, end)
	if i < 0 && j < 0 {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + "\n" + start + "\n" + body + end + "\n", nil
	}
	if i < 0 || j < i {
		return "", fmt.Errorf("unbalanced markers %s / %s", start, end)
	}
	return content[:i+len(start)] + "\n" + body + content[j:], nil
}
