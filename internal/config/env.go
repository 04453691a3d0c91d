package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
)

// LoadEnvFile loads the first of .env and .env.local found in dir. Variables
// already present in the process environment are not overwritten. It returns
// the loaded path, or "" when neither file exists.
func LoadEnvFile(dir string) (string, error) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", lderrors.WrapError(err, lderrors.CategoryConfig, "failed to load env file").
				Fatal().WithContext("path", p).Build()
		}
		return p, nil
	}
	return "", nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LANGDOCS_LANGS_DIR"); v != "" {
		cfg.Source.LangsDir = v
	}
	if v := os.Getenv("LANGDOCS_OUTPUT_DIR"); v != "" {
		cfg.Output.Directory = v
	}
	if v := os.Getenv("LANGDOCS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v := os.Getenv("LANGDOCS_NATS_URL"); v != "" {
		cfg.Notify.NATSURL = v
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references only, so values such as
// "$descriptor.json" pass through untouched.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}
