package langdocs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Section is one heading of a rendered page outline.
type Section struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Level    int       `json:"level"`
	Children []Section `json:"children"`
}

// DocFormat selects the serialized shape of a DocFile.
type DocFormat string

const (
	// DocFormatTOC writes {"toc": [...], "default": "<html>"}.
	DocFormatTOC DocFormat = "toc"
	// DocFormatSections writes {"sections": [...], "html": "<html>"}.
	DocFormatSections DocFormat = "sections"
)

// DocFile is a rendered API doc or guide page.
type DocFile struct {
	Sections []Section
	HTML     string
	Format   DocFormat
}

type tocDocFile struct {
	TOC     []Section `json:"toc"`
	Default string    `json:"default"`
}

type sectionsDocFile struct {
	Sections []Section `json:"sections"`
	HTML     string    `json:"html"`
}

// MarshalJSON writes the shape selected by Format (toc when unset).
func (d DocFile) MarshalJSON() ([]byte, error) {
	sections := d.Sections
	if sections == nil {
		sections = []Section{}
	}
	if d.Format == DocFormatSections {
		return json.Marshal(sectionsDocFile{Sections: sections, HTML: d.HTML})
	}
	return json.Marshal(tocDocFile{TOC: sections, Default: d.HTML})
}

// UnmarshalJSON accepts either shape and records which one was read.
func (d *DocFile) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode doc file: %w", err)
	}
	_, hasTOC := probe["toc"]
	_, hasDefault := probe["default"]
	if hasTOC || hasDefault {
		var v tocDocFile
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode doc file: %w", err)
		}
		*d = DocFile{Sections: v.TOC, HTML: v.Default, Format: DocFormatTOC}
		return nil
	}
	var v sectionsDocFile
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode doc file: %w", err)
	}
	*d = DocFile{Sections: v.Sections, HTML: v.HTML, Format: DocFormatSections}
	return nil
}

// ResourceMetadata describes one guide page, keyed by guide name in
// docs/<lang>/guides/_metadata.json.
type ResourceMetadata struct {
	Resource    string  `json:"resource"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Sort        float64 `json:"sort"`
}

// GuideEntry is one line of the guide directory.
type GuideEntry struct {
	Resource    string `json:"resource"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LessonFile is a tutorial bundle. Lesson and Solved are passed through as
// raw JSON; Markdown holds the rendered HTML of lesson.md.
type LessonFile struct {
	Lesson   json.RawMessage `json:"lesson,omitempty"`
	Solved   json.RawMessage `json:"solved,omitempty"`
	Markdown string          `json:"markdown,omitempty"`
}

// IsEmpty reports whether the lesson has no parts at all.
func (l LessonFile) IsEmpty() bool {
	return len(l.Lesson) == 0 && len(l.Solved) == 0 && l.Markdown == ""
}

// LessonLookup is one entry of a tutorial directory.
type LessonLookup struct {
	LessonName   string `json:"lessonName"`
	InternalName string `json:"internalName"`
}

// ExampleFile is one named source file of an example bundle. Name carries
// no extension; Type is the extension without the dot.
type ExampleFile struct {
	Name    string   `json:"name"`
	Type    FileType `json:"type"`
	Content string   `json:"content"`
}

// FileName joins name and type. An empty type is treated as jsx.
func (f ExampleFile) FileName() string {
	t := f.Type
	if t == "" {
		t = FileTypeJSX
	}
	return f.Name + t.Ext()
}

// UnmarshalJSON also accepts content given as an array of lines.
func (f *ExampleFile) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name    string          `json:"name"`
		Type    FileType        `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Name, f.Type, f.Content = raw.Name, raw.Type, ""
	content := bytes.TrimSpace(raw.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
	case content[0] == '[':
		var lines []string
		if err := json.Unmarshal(content, &lines); err != nil {
			return fmt.Errorf("decode content of %q: %w", raw.Name, err)
		}
		f.Content = strings.Join(lines, "\n")
	default:
		if err := json.Unmarshal(content, &f.Content); err != nil {
			return fmt.Errorf("decode content of %q: %w", raw.Name, err)
		}
	}
	return nil
}

// ExampleSummary is the directory form of an example bundle.
type ExampleSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExampleBundle packs the source files of one interactive example.
type ExampleBundle struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Files       []ExampleFile `json:"files"`
}

// Summary drops the file contents.
func (b ExampleBundle) Summary() ExampleSummary {
	return ExampleSummary{ID: b.ID, Name: b.Name, Description: b.Description}
}
