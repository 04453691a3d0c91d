package langdocs

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/langdocs/pkg/supportmatrix"
)

func outputFS() fstest.MapFS {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }
	return fstest.MapFS{
		"supported.json": file(`{"api":["en","fr"],"guides":{"intro":["en"],"setup":["en","fr"]},"tutorials":{"basics":["en"]},"examples":{"hello":["en"],"broken":["fr"]}}`),
		"docs/en/api.json": file(`{"toc":[{"slug":"api","title":"API","level":1,"children":[]}],"default":"<h1>API</h1>"}`),
		"docs/fr/api.json": file(`{"sections":[],"html":"<h1>API</h1>"}`),
		"docs/en/guides/intro.json": file(`{"toc":[],"default":"<p>intro</p>"}`),
		"docs/en/guides/_metadata.json": file(`{
			"intro":{"resource":"guides/intro","title":"Intro","description":"Start","sort":2},
			"setup":{"resource":"guides/setup","title":"Setup","description":"","sort":1},
			"draft":{"resource":"guides/draft","title":"","description":"","sort":0}
		}`),
		"tutorials/en/basics.json":    file(`{"lesson":{"steps":1},"markdown":"<p>hi</p>"}`),
		"tutorials/en/directory.json": file(`[{"lessonName":"Basics","internalName":"basics"}]`),
		"examples/en/hello.json":      file(`{"id":"hello","name":"Hello","description":"d","files":[{"name":"index","type":"js","content":"x"}]}`),
		"examples/en/directory.json":  file(`[{"id":"hello","name":"Hello","description":"d"}]`),
		"examples/fr/broken.json":     file(`{`),
	}
}

func TestResolver_MatrixQueries(t *testing.T) {
	r := NewResolver(outputFS())

	langs, err := r.Languages()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, langs)

	ok, err := r.Supports("guides/setup", "fr")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Supports("guides/intro", "fr")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := r.Available("guides", "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"setup"}, keys.Unwrap())

	res, err := r.Resolve("tutorials", "en")
	require.NoError(t, err)
	assert.Equal(t, supportmatrix.KindCategory, res.Kind)
	assert.Equal(t, []string{"basics"}, res.Keys)

	res, err = r.Resolve("tutorials/basics", "fr")
	require.NoError(t, err)
	assert.Equal(t, supportmatrix.Resolution{Kind: supportmatrix.KindResource}, res)
}

func TestResolver_MissingSupportedIsEmpty(t *testing.T) {
	r := NewResolver(fstest.MapFS{})
	langs, err := r.Languages()
	require.NoError(t, err)
	assert.Empty(t, langs)

	ok, err := r.Supports("api", "en")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_CorruptSupported(t *testing.T) {
	r := NewResolver(fstest.MapFS{"supported.json": {Data: []byte(`["en"]`)}})
	_, err := r.Supported()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestResolver_Doc(t *testing.T) {
	r := NewResolver(outputFS())

	doc, err := r.Doc("en", "api")
	require.NoError(t, err)
	d := doc.Unwrap()
	assert.Equal(t, DocFormatTOC, d.Format)
	assert.Equal(t, "<h1>API</h1>", d.HTML)
	require.Len(t, d.Sections, 1)

	doc, err = r.Doc("fr", "api")
	require.NoError(t, err)
	assert.Equal(t, DocFormatSections, doc.Unwrap().Format)

	guide, err := r.Guide("en", "intro")
	require.NoError(t, err)
	assert.Equal(t, "<p>intro</p>", guide.Unwrap().HTML)

	for _, c := range []struct{ lang, resource string }{
		{"de", "api"},
		{"en", "guides/missing"},
		{"en", "../en/api"},
		{"en", "guides//intro"},
		{"", "api"},
		{"..", "api"},
	} {
		doc, err := r.Doc(c.lang, c.resource)
		require.NoError(t, err, c)
		assert.True(t, doc.IsNone(), c)
	}

	meta, err := r.Guide("en", "_metadata")
	require.NoError(t, err)
	assert.True(t, meta.IsNone())
}

func TestResolver_Guides(t *testing.T) {
	r := NewResolver(outputFS())

	entries, err := r.Guides("en")
	require.NoError(t, err)
	assert.Equal(t, []GuideEntry{
		{Resource: "guides/setup", Title: "Setup"},
		{Resource: "guides/intro", Title: "Intro", Description: "Start"},
	}, entries.Unwrap())

	entries, err = r.Guides("fr")
	require.NoError(t, err)
	assert.True(t, entries.IsNone())
}

func TestResolver_TutorialsAndExamples(t *testing.T) {
	r := NewResolver(outputFS())

	lesson, err := r.Tutorial("en", "basics")
	require.NoError(t, err)
	assert.JSONEq(t, `{"steps":1}`, string(lesson.Unwrap().Lesson))
	assert.Equal(t, "<p>hi</p>", lesson.Unwrap().Markdown)

	dir, err := r.TutorialDirectory("en")
	require.NoError(t, err)
	assert.Equal(t, []LessonLookup{{LessonName: "Basics", InternalName: "basics"}}, dir.Unwrap())

	notLesson, err := r.Tutorial("en", "directory")
	require.NoError(t, err)
	assert.True(t, notLesson.IsNone())

	ex, err := r.Example("en", "hello")
	require.NoError(t, err)
	assert.Equal(t, "index.js", ex.Unwrap().Files[0].FileName())

	summaries, err := r.ExamplesDirectory("en")
	require.NoError(t, err)
	assert.Equal(t, []ExampleSummary{{ID: "hello", Name: "Hello", Description: "d"}}, summaries.Unwrap())

	none, err := r.ExamplesDirectory("fr")
	require.NoError(t, err)
	assert.True(t, none.IsNone())

	_, err = r.Example("fr", "broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestResolver_UnlistedArtifactsAreNone(t *testing.T) {
	fsys := outputFS()
	// left behind by an earlier build without cleaning
	fsys["docs/en/guides/old.json"] = &fstest.MapFile{Data: []byte(`{"toc":[],"default":"<p>old</p>"}`)}
	fsys["docs/en/guides/_metadata.json"] = &fstest.MapFile{Data: []byte(`{
		"intro":{"resource":"guides/intro","title":"Intro","description":"","sort":1},
		"old":{"resource":"guides/old","title":"Old","description":"","sort":0}
	}`)}
	fsys["tutorials/fr/basics.json"] = &fstest.MapFile{Data: []byte(`{"markdown":"<p>salut</p>"}`)}
	fsys["examples/fr/hello.json"] = &fstest.MapFile{Data: []byte(`{"id":"hello","name":"Hello","description":"","files":[]}`)}
	r := NewResolver(fsys)

	ok, err := r.Supports("guides/old", "en")
	require.NoError(t, err)
	assert.False(t, ok)

	guide, err := r.Guide("en", "old")
	require.NoError(t, err)
	assert.True(t, guide.IsNone())

	lesson, err := r.Tutorial("fr", "basics")
	require.NoError(t, err)
	assert.True(t, lesson.IsNone())

	ex, err := r.Example("fr", "hello")
	require.NoError(t, err)
	assert.True(t, ex.IsNone())

	entries, err := r.Guides("en")
	require.NoError(t, err)
	assert.Equal(t, []GuideEntry{{Resource: "guides/intro", Title: "Intro"}}, entries.Unwrap())
}
