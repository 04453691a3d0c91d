package frontmatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Attributes are the frontmatter fields used by the section aggregator and
// the guide directory. Fields holds everything that was parsed.
type Attributes struct {
	Title       string
	Description string
	Sort        float64
	Fields      map[string]any
}

// HasTitle reports whether a non-blank title was declared.
func (a Attributes) HasTitle() bool {
	return strings.TrimSpace(a.Title) != ""
}

// Parse splits content and decodes its frontmatter. Documents without
// frontmatter yield zero Attributes and the full body.
func Parse(content []byte) (Attributes, []byte, error) {
	raw, body, _, err := Split(content)
	if err != nil {
		return Attributes{}, nil, err
	}
	fields, err := ParseYAML(raw)
	if err != nil {
		return Attributes{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	attrs := Attributes{Fields: fields}
	attrs.Title = stringField(fields, "title")
	attrs.Description = stringField(fields, "description")
	if v, ok := fields["sort"]; ok {
		sort, err := toFloat(v)
		if err != nil {
			return Attributes{}, nil, fmt.Errorf("parse frontmatter: sort: %w", err)
		}
		attrs.Sort = sort
	}
	return attrs, body, nil
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// toFloat accepts finite numbers and numeric strings.
func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}
