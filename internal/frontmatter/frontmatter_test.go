package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\nkey: value\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_EmptyFrontmatter(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\nbody\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("body\n"), body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\ntitle: Only\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Only\n"), fm)
	require.Empty(t, body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLFAndBOM(t *testing.T) {
	fm, body, had, err := Split([]byte("\xef\xbb\xbf---\r\nkey: value\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestParseYAML_EmptyAndInvalid(t *testing.T) {
	fields, err := ParseYAML(nil)
	require.NoError(t, err)
	require.Empty(t, fields)

	_, err = ParseYAML([]byte("title: [broken\n"))
	require.Error(t, err)
}

func TestParse_TypedAttributes(t *testing.T) {
	attrs, body, err := Parse([]byte("---\ntitle: Getting Started\ndescription: First steps\nsort: 2\nauthor: x\n---\n# Hello\n"))
	require.NoError(t, err)

	assert.Equal(t, "Getting Started", attrs.Title)
	assert.Equal(t, "First steps", attrs.Description)
	assert.Equal(t, 2.0, attrs.Sort)
	assert.True(t, attrs.HasTitle())
	assert.Equal(t, "x", attrs.Fields["author"])
	assert.Equal(t, "# Hello\n", string(body))
}

func TestParse_SortVariants(t *testing.T) {
	cases := map[string]float64{
		"---\nsort: 1.5\n---\n":   1.5,
		"---\nsort: \"3\"\n---\n": 3,
		"---\nsort: -1\n---\n":    -1,
		"---\ntitle: x\n---\n":    0,
		"no frontmatter":          0,
	}
	for in, want := range cases {
		attrs, _, err := Parse([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, attrs.Sort, in)
	}

	_, _, err := Parse([]byte("---\nsort: soon\n---\n"))
	require.Error(t, err)
}

func TestParse_NonFiniteSortRejected(t *testing.T) {
	for _, in := range []string{
		"---\nsort: .nan\n---\n",
		"---\nsort: .inf\n---\n",
		"---\nsort: -.Inf\n---\n",
		"---\nsort: \"NaN\"\n---\n",
	} {
		_, _, err := Parse([]byte(in))
		require.Error(t, err, in)
		assert.Contains(t, err.Error(), "sort", in)
	}
}

func TestParse_MissingTitle(t *testing.T) {
	attrs, _, err := Parse([]byte("---\ntitle: \"  \"\n---\nbody"))
	require.NoError(t, err)
	assert.False(t, attrs.HasTitle())
}
