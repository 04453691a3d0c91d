package markdown

import (
	"strings"

	gmast "github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Outline collects the heading tree of a parsed document. A level-1 heading
// starts a new top-level entry. A level-2 heading is attached to the last
// level-1 heading, or becomes a top-level entry when there is none yet.
// Deeper headings are attached to the last level-2 heading and are dropped
// when no level-2 heading has been seen since the last level-1 heading.
func Outline(doc gmast.Node, source []byte) []langdocs.Section {
	b := outlineBuilder{sections: []langdocs.Section{}, first: -1, second: -1}
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		h, ok := n.(*gmast.Heading)
		if !ok || !entering {
			return gmast.WalkContinue, nil
		}
		b.add(langdocs.Section{
			Slug:     headingID(h),
			Title:    strings.TrimSpace(nodeText(h, source)),
			Level:    h.Level,
			Children: []langdocs.Section{},
		})
		return gmast.WalkSkipChildren, nil
	})
	return b.sections
}

// outlineBuilder tracks the open level-1 and level-2 entries by index path,
// since appending may move the backing arrays.
type outlineBuilder struct {
	sections  []langdocs.Section
	first     int  // index into sections, -1 when none
	second    int  // index into sections[first].Children, -1 when none
	secondTop bool // second indexes sections instead
}

func (b *outlineBuilder) add(s langdocs.Section) {
	switch {
	case s.Level <= 1:
		b.sections = append(b.sections, s)
		b.first, b.second, b.secondTop = len(b.sections)-1, -1, false
	case s.Level == 2:
		if b.first < 0 {
			b.sections = append(b.sections, s)
			b.second, b.secondTop = len(b.sections)-1, true
			return
		}
		parent := &b.sections[b.first]
		parent.Children = append(parent.Children, s)
		b.second, b.secondTop = len(parent.Children)-1, false
	default:
		if b.second < 0 {
			return
		}
		var owner *langdocs.Section
		if b.secondTop {
			owner = &b.sections[b.second]
		} else {
			owner = &b.sections[b.first].Children[b.second]
		}
		owner.Children = append(owner.Children, s)
	}
}

// nodeText concatenates the plain text below n.
func nodeText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(gmast.Node)
	walk = func(node gmast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *gmast.Text:
				sb.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte(' ')
				}
			case *gmast.String:
				sb.Write(t.Value)
			case *gmast.RawHTML:
				// inline tags are not part of the title
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}
