// Package translation reports which translated files lag behind the
// reference language, using the git history of the langs tree.
package translation

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/langs"
)

// ReadmeFile is the per-language notes file the report is written into.
const ReadmeFile = "README.md"

// Commit identifies the last meaningful change of one file.
type Commit struct {
	Hash string    `json:"hash"`
	Date time.Time `json:"date"`
}

// Short is the abbreviated hash.
func (c Commit) Short() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Update is a translated file whose reference counterpart changed later.
type Update struct {
	File      string `json:"file"`
	Lang      Commit `json:"lang"`
	Reference Commit `json:"reference"`
}

// LanguageReport lists the work left for one language.
type LanguageReport struct {
	Lang    string   `json:"lang"`
	Updates []Update `json:"updates"`
	Missing []string `json:"missing"`
}

// Report covers every non-reference language.
type Report struct {
	Reference string           `json:"reference"`
	Languages []LanguageReport `json:"languages"`
}

// Reporter reads file history from the git repository containing the langs
// directory.
type Reporter struct {
	repo      *git.Repository
	repoRoot  string
	langsDir  string
	reference string
}

// Open finds the repository that contains langsDir.
func Open(langsDir, reference string) (*Reporter, error) {
	abs, err := filepath.Abs(langsDir)
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "resolve langs directory").Build()
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryGit, "open git repository").
			WithContext("path", abs).Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryGit, "open worktree").
			WithContext("path", abs).Build()
	}
	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		root = wt.Filesystem.Root()
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &Reporter{repo: repo, repoRoot: root, langsDir: abs, reference: reference}, nil
}

// Build compares every language against the reference language. A
// translated file is outdated when the reference file's last commit is newer
// than its own; a reference file without translation is missing.
func (r *Reporter) Build(ctx context.Context) (*Report, error) {
	sources, _, err := langs.Discover(r.langsDir, nil)
	if err != nil {
		return nil, err
	}
	refFiles, err := r.files(r.reference)
	if err != nil {
		return nil, err
	}
	refCommits := make(map[string]Commit, len(refFiles))
	for _, f := range refFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := r.lastCommit(r.reference, f)
		if err != nil {
			return nil, err
		}
		refCommits[f] = c
	}

	report := &Report{Reference: r.reference}
	for _, src := range sources {
		if src.Lang == r.reference {
			continue
		}
		files, err := r.files(src.Lang)
		if err != nil {
			return nil, err
		}
		have := make(map[string]bool, len(files))
		for _, f := range files {
			have[f] = true
		}

		lr := LanguageReport{Lang: src.Lang, Updates: []Update{}, Missing: []string{}}
		for _, f := range refFiles {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !have[f] {
				lr.Missing = append(lr.Missing, f)
				continue
			}
			c, err := r.lastCommit(src.Lang, f)
			if err != nil {
				return nil, err
			}
			ref := refCommits[f]
			if ref.Date.After(c.Date) && c.Hash != "" {
				lr.Updates = append(lr.Updates, Update{File: f, Lang: c, Reference: ref})
			}
		}
		report.Languages = append(report.Languages, lr)
	}
	return report, nil
}

// files lists the files of lang relative to its directory, slash separated
// and sorted. The language README is not content.
func (r *Reporter) files(lang string) ([]string, error) {
	root := filepath.Join(r.langsDir, lang)
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ReadmeFile || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, lderrors.NotFoundError("reference language directory not found").
			WithContext("lang", lang).WithContext("path", root).Build()
	}
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "walk language directory").
			WithContext("path", root).Build()
	}
	sort.Strings(out)
	return out, nil
}

// lastCommit returns the newest commit touching the file, skipping one
// leading commit whose subject starts with "refactor". Untracked files yield
// a zero Commit.
func (r *Reporter) lastCommit(lang, rel string) (Commit, error) {
	full := filepath.Join(r.langsDir, lang, filepath.FromSlash(rel))
	repoRel, err := filepath.Rel(r.repoRoot, full)
	if err != nil {
		return Commit{}, lderrors.WrapError(err, lderrors.CategoryGit, "file outside repository").
			WithContext("path", full).Build()
	}
	repoRel = filepath.ToSlash(repoRel)

	iter, err := r.repo.Log(&git.LogOptions{FileName: &repoRel})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return Commit{}, nil
	}
	if err != nil {
		return Commit{}, lderrors.WrapError(err, lderrors.CategoryGit, "read file history").
			WithContext("path", repoRel).Build()
	}
	defer iter.Close()

	var picked *object.Commit
	for i := 0; i < 2; i++ {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Commit{}, lderrors.WrapError(err, lderrors.CategoryGit, "read file history").
				WithContext("path", repoRel).Build()
		}
		if picked == nil || i == 1 && isRefactor(picked) {
			picked = c
		}
		if !isRefactor(c) {
			break
		}
	}
	if picked == nil {
		return Commit{}, nil
	}
	return Commit{Hash: picked.Hash.String(), Date: picked.Author.When.UTC()}, nil
}

func isRefactor(c *object.Commit) bool {
	return strings.HasPrefix(strings.TrimSpace(c.Message), "refactor")
}

