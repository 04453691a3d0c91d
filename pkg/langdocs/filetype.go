package langdocs

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/langdocs/pkg/foundation"
)

// FileType tags an example source file.
type FileType string

const (
	FileTypeJSX  FileType = "jsx"
	FileTypeTSX  FileType = "tsx"
	FileTypeJS   FileType = "js"
	FileTypeTS   FileType = "ts"
	FileTypeCSS  FileType = "css"
	FileTypeHTML FileType = "html"
	FileTypeJSON FileType = "json"
	FileTypeMD   FileType = "md"
	FileTypeSVG  FileType = "svg"
	FileTypeTXT  FileType = "txt"
)

// extensionTable maps file extensions onto file types. The mapping is one to
// one so that unpacking a bundle restores the original extensions.
var extensionTable = map[string]FileType{
	".jsx":  FileTypeJSX,
	".tsx":  FileTypeTSX,
	".js":   FileTypeJS,
	".ts":   FileTypeTS,
	".css":  FileTypeCSS,
	".html": FileTypeHTML,
	".json": FileTypeJSON,
	".md":   FileTypeMD,
	".svg":  FileTypeSVG,
	".txt":  FileTypeTXT,
}

var fileTypeNormalizer = foundation.NewNormalizer(map[string]FileType{
	"jsx":  FileTypeJSX,
	"tsx":  FileTypeTSX,
	"js":   FileTypeJS,
	"ts":   FileTypeTS,
	"css":  FileTypeCSS,
	"html": FileTypeHTML,
	"json": FileTypeJSON,
	"md":   FileTypeMD,
	"svg":  FileTypeSVG,
	"txt":  FileTypeTXT,
}, FileTypeJSX)

// ParseFileType matches a type name such as "TSX" or " css ".
func ParseFileType(s string) foundation.Option[FileType] {
	return fileTypeNormalizer.Lookup(s)
}

// FileTypeOf derives the type of a file name from its extension.
func FileTypeOf(name string) foundation.Option[FileType] {
	t, ok := extensionTable[path.Ext(name)]
	return foundation.FromComma(t, ok)
}

// Ext returns the canonical extension including the dot.
func (t FileType) Ext() string {
	if t == "" {
		return ""
	}
	return "." + string(t)
}

// SplitFileName splits "counter.tsx" into ("counter", tsx). It returns None
// for unknown or missing extensions.
func SplitFileName(name string) (string, foundation.Option[FileType]) {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext), FileTypeOf(name)
}
