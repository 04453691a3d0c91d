package tutorial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/markdown"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func newBundler() *Bundler {
	return NewBundler(markdown.New(markdown.Options{}))
}

func TestAll_BundlesLessons(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"intro/lesson.json":  "{\n  \"files\": [1, 2]\n}\n",
		"intro/solved.json":  `{"files": [3]}`,
		"intro/lesson.md":    "# Welcome\n",
		"props/lesson.md":    "Props *rock*\n",
		"empty/.keep":        "",
		"directory.json":     `[{"lessonName":"Intro","internalName":"intro"},{"lessonName":"Props","internalName":"props"}]`,
		"_drafts/lesson.md":  "# draft",
	})

	set, warnings, err := newBundler().All(dir)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, set.Lessons, 2)

	intro := set.Lessons[0]
	assert.Equal(t, "intro", intro.Name)
	assert.JSONEq(t, `{"files":[1,2]}`, string(intro.File.Lesson))
	assert.Equal(t, `{"files":[1,2]}`, string(intro.File.Lesson))
	assert.Equal(t, `{"files":[3]}`, string(intro.File.Solved))
	assert.Contains(t, intro.File.Markdown, "Welcome</h1>")
	assert.Len(t, intro.Sources, 3)

	props := set.Lessons[1]
	assert.Nil(t, props.File.Lesson)
	assert.Contains(t, props.File.Markdown, "<em>rock</em>")

	directory, ok := set.Directory.Get()
	require.True(t, ok)
	assert.Equal(t, []langdocs.LessonLookup{
		{LessonName: "Intro", InternalName: "intro"},
		{LessonName: "Props", InternalName: "props"},
	}, directory)
}

func TestAll_MalformedLessonIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"bad/lesson.json":  `{"files": [`,
		"bad/lesson.md":    "# still skipped",
		"good/solved.json": `[]`,
	})

	set, warnings, err := newBundler().All(dir)
	require.NoError(t, err)
	require.Len(t, set.Lessons, 1)
	assert.Equal(t, "good", set.Lessons[0].Name)
	require.Len(t, warnings, 1)
	assert.Equal(t, lderrors.SeverityWarning, lderrors.GetSeverity(warnings[0]))
	assert.True(t, set.Directory.IsNone())
}

func TestAll_MissingDirectory(t *testing.T) {
	set, warnings, err := newBundler().All(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, set.Lessons)
}

func TestReadDirectory_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"directory.json": `[{"lessonName":"x"}]`})
	_, err := ReadDirectory(filepath.Join(dir, "directory.json"))
	assert.Error(t, err)

	set, warnings, err := newBundler().All(dir)
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.True(t, set.Directory.IsNone())
}
