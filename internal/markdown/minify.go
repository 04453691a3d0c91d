package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "summary": true,
	"table": true, "tbody": true, "td": true, "tfoot": true, "th": true,
	"thead": true, "tr": true, "ul": true, "br": true,
}

var preserveTags = map[string]bool{
	"pre": true, "textarea": true, "script": true, "style": true,
}

// Minify removes comments and collapses whitespace in an HTML fragment.
// Text inside pre, textarea, script and style is left untouched, and
// whitespace-only runs next to block-level tags are dropped.
func Minify(fragment string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var out bytes.Buffer
	out.Grow(len(fragment))

	preserve := 0
	prevBlock := true // start of fragment behaves like a block boundary
	pendingSpace := false

	flushSpace := func(nextBlock bool) {
		if pendingSpace && !prevBlock && !nextBlock {
			out.WriteByte(' ')
		}
		pendingSpace = false
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				flushSpace(true)
				return out.String(), nil
			}
			return "", fmt.Errorf("minify html: %w", z.Err())
		case html.CommentToken:
			continue
		case html.TextToken:
			raw := z.Raw()
			if preserve > 0 {
				out.Write(raw)
				prevBlock = false
				continue
			}
			collapsed := collapseWhitespace(raw)
			trimmed := strings.TrimSpace(collapsed)
			if trimmed == "" {
				pendingSpace = pendingSpace || collapsed != ""
				continue
			}
			leading := collapsed[0] == ' '
			trailing := collapsed[len(collapsed)-1] == ' '
			flushSpace(false)
			if leading && !prevBlock {
				out.WriteByte(' ')
			}
			out.WriteString(trimmed)
			pendingSpace = trailing
			prevBlock = false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			isBlock := blockTags[tag]
			flushSpace(isBlock)
			out.Write(z.Raw())
			if preserveTags[tag] {
				switch tt {
				case html.StartTagToken:
					preserve++
				case html.EndTagToken:
					if preserve > 0 {
						preserve--
					}
				}
			}
			prevBlock = isBlock
		default:
			flushSpace(false)
			out.Write(z.Raw())
			prevBlock = false
		}
	}
}

func collapseWhitespace(raw []byte) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	space := false
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
				space = true
			}
		default:
			sb.WriteByte(c)
			space = false
		}
	}
	return sb.String()
}
