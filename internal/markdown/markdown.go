// Package markdown renders Markdown sources to HTML with a heading outline.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	highlighting "github.com/yuin/goldmark-highlighting/v2"

	"git.home.luguber.info/inful/langdocs/internal/frontmatter"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Options configure a Renderer.
type Options struct {
	// HighlightStyle is a chroma style name; empty disables highlighting.
	HighlightStyle string
	// Permalinks inserts a "#" anchor link before each heading's text.
	Permalinks bool
	// Minify collapses whitespace and drops comments from the output.
	Minify bool
}

// Page is one rendered Markdown file.
type Page struct {
	Attributes frontmatter.Attributes
	HTML       string
	Sections   []langdocs.Section
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md   goldmark.Markdown
	opts Options
}

// New builds a renderer with GFM, raw HTML passthrough and automatic
// heading ids.
func New(opts Options) *Renderer {
	extensions := []goldmark.Extender{extension.GFM}
	if opts.HighlightStyle != "" {
		extensions = append(extensions, highlighting.NewHighlighting(highlighting.WithStyle(opts.HighlightStyle)))
	}
	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Renderer{md: md, opts: opts}
}

// Render splits off frontmatter and renders the body.
func (r *Renderer) Render(source []byte) (Page, error) {
	attrs, body, err := frontmatter.Parse(source)
	if err != nil {
		return Page{}, err
	}
	htmlOut, sections, err := r.RenderBody(body)
	if err != nil {
		return Page{}, err
	}
	return Page{Attributes: attrs, HTML: htmlOut, Sections: sections}, nil
}

// RenderBody renders a Markdown body (frontmatter already removed).
func (r *Renderer) RenderBody(body []byte) (string, []langdocs.Section, error) {
	ctx := parser.NewContext()
	doc := r.md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	sections := Outline(doc, body)
	if r.opts.Permalinks {
		addPermalinks(doc)
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return "", nil, fmt.Errorf("render markdown: %w", err)
	}
	out := buf.String()
	if r.opts.Minify {
		minified, err := Minify(out)
		if err != nil {
			return "", nil, err
		}
		out = minified
	}
	return out, sections, nil
}

func headingID(h *gmast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	default:
		return ""
	}
}

// addPermalinks prepends <a class="header-anchor" href="#id">#</a> to every
// heading that has an id.
func addPermalinks(doc gmast.Node) {
	var headings []*gmast.Heading
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if h, ok := n.(*gmast.Heading); ok && entering {
			headings = append(headings, h)
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	for _, h := range headings {
		id := headingID(h)
		if id == "" {
			continue
		}
		link := gmast.NewLink()
		link.Destination = []byte("#" + id)
		link.SetAttributeString("class", []byte("header-anchor"))
		link.AppendChild(link, gmast.NewString([]byte("#")))
		space := gmast.NewString([]byte(" "))
		if first := h.FirstChild(); first != nil {
			h.InsertBefore(h, first, space)
			h.InsertBefore(h, space, link)
		} else {
			h.AppendChild(h, link)
		}
	}
}
