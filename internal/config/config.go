package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "langdocs.yaml"

// Config represents the application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Examples ExamplesConfig `yaml:"examples"`
	Build    BuildConfig    `yaml:"build"`
	State    StateConfig    `yaml:"state"`
	Watch    WatchConfig    `yaml:"watch"`
	Notify   NotifyConfig   `yaml:"notify"`
	Serve    ServeConfig    `yaml:"serve"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig locates the per-language source trees.
type SourceConfig struct {
	LangsDir string `yaml:"langs_dir"`
	// Languages restricts the build to these codes; empty means every
	// language directory found.
	Languages         []string `yaml:"languages,omitempty"`
	ReferenceLanguage string   `yaml:"reference_language"`
}

// OutputConfig controls where and how artifacts are written.
type OutputConfig struct {
	Directory string             `yaml:"directory"`
	DocFormat langdocs.DocFormat `yaml:"doc_format"`
	Pretty    bool               `yaml:"pretty"`
	Clean     bool               `yaml:"clean"` // Remove artifacts a full build did not write
}

// MarkdownConfig controls rendering.
type MarkdownConfig struct {
	HighlightStyle string `yaml:"highlight_style"`
	SectionClass   string `yaml:"section_class"`
	Minify         bool   `yaml:"minify"`
	Permalinks     bool   `yaml:"permalinks"`
}

// ExamplesConfig controls example bundling.
type ExamplesConfig struct {
	Descriptor string `yaml:"descriptor"`
}

// BuildConfig controls the build driver.
type BuildConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// StateConfig locates the manifest and build history.
type StateConfig struct {
	Directory string `yaml:"directory"`
	History   bool   `yaml:"history"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce            time.Duration `yaml:"debounce"`
	FullRebuildInterval time.Duration `yaml:"full_rebuild_interval"` // 0 disables
}

// NotifyConfig enables NATS rebuild notifications when NATSURL is set.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ServeConfig controls the preview API.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads the configuration at configPath. A missing file yields the
// defaults. ${VAR} references are expanded in the YAML text and a few
// LANGDOCS_* variables override the result.
func Load(configPath string) (*Config, error) {
	if _, err := LoadEnvFile("."); err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, lderrors.WrapError(err, lderrors.CategoryConfig, "failed to read config file").
			Fatal().WithContext("path", configPath).Build()
	default:
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
			return nil, lderrors.WrapError(err, lderrors.CategoryConfig, "failed to parse config file").
				Fatal().WithContext("path", configPath).
				WithHint("run `langdocs init` to write a valid example configuration").Build()
		}
	}

	applyEnvOverrides(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryConfig, "failed to parse config").Fatal().Build()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if v, ok := docFormatNormalizer.Lookup(string(c.Output.DocFormat)).Get(); ok {
		c.Output.DocFormat = v
	}
	if v, ok := logLevelNormalizer.Lookup(string(c.Logging.Level)).Get(); ok {
		c.Logging.Level = v
	}
	if v, ok := logFormatNormalizer.Lookup(string(c.Logging.Format)).Get(); ok {
		c.Logging.Format = v
	}
}

// Init writes an annotated default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return lderrors.ConfigError("configuration file already exists").
			WithContext("path", configPath).WithHint("pass --force to overwrite it").Build()
	}
	if err := os.WriteFile(configPath, []byte(initTemplate), 0o644); err != nil {
		return lderrors.WrapError(err, lderrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}
