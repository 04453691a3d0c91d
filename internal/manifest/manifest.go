// Package manifest records the inputs and outputs of a build so that the next
// build can report which artifacts changed and why.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inful/mdfp"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/frontmatter"
)

// FileName is the manifest file name inside the state directory.
const FileName = "manifest.json"

// BuildManifest represents a complete record of a build's inputs and outputs.
type BuildManifest struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Inputs    Inputs    `json:"inputs"`
	Outputs   Outputs   `json:"outputs"`
	Status    string    `json:"status"`
	Duration  int64     `json:"duration_ms"`
	Warnings  int       `json:"warnings"`
}

// Inputs captures the languages built, the configuration hash, and a
// fingerprint per source file keyed by its path relative to the langs root.
type Inputs struct {
	Languages  []string          `json:"languages"`
	ConfigHash string            `json:"config_hash"`
	Sources    map[string]string `json:"sources"`
}

// Outputs maps every written artifact onto the sources it was built from.
type Outputs struct {
	Artifacts map[string][]string `json:"artifacts"`
}

// New returns an empty manifest.
func New(id string, ts time.Time) *BuildManifest {
	return &BuildManifest{
		ID:        id,
		Timestamp: ts.UTC(),
		Inputs:    Inputs{Sources: map[string]string{}},
		Outputs:   Outputs{Artifacts: map[string][]string{}},
	}
}

// Record notes that artifact was built from sources. Sources are paths
// relative to the langs root and must already be fingerprinted in Inputs.
func (m *BuildManifest) Record(artifact string, sources []string) {
	list := append([]string(nil), sources...)
	sort.Strings(list)
	m.Outputs.Artifacts[artifact] = list
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m.Inputs.Sources == nil {
		m.Inputs.Sources = map[string]string{}
	}
	if m.Outputs.Artifacts == nil {
		m.Outputs.Artifacts = map[string][]string{}
	}
	return &m, nil
}

// Load reads a manifest file. A missing file yields nil and no error.
func Load(path string) (*BuildManifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryFileSystem, "read manifest").
			WithContext("path", path).Build()
	}
	m, err := FromJSON(data)
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryBuild, "malformed manifest").
			Warning().WithContext("path", path).Build()
	}
	return m, nil
}

// Hash computes a deterministic hash of the manifest's inputs. Two builds with
// equal hashes read identical sources under identical configuration.
func (m *BuildManifest) Hash() (string, error) {
	data, err := json.Marshal(m.Inputs)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// Fingerprint hashes one source file. Markdown files are hashed with mdfp
// over their frontmatter and body so that frontmatter delimiters and line
// endings do not matter; every other file is hashed with sha256.
func Fingerprint(name string, content []byte) string {
	if strings.HasSuffix(name, ".md") {
		fm, body, _, err := frontmatter.Split(content)
		if err == nil {
			return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(normalizeNewlines(string(fm)), "\n"), normalizeNewlines(string(body)))
		}
	}
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%x", sum)
}

// FingerprintFile reads and fingerprints path.
func FingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Fingerprint(filepath.Base(path), data), nil
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
