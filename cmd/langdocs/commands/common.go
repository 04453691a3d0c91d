package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/langdocs/internal/build"
	"git.home.luguber.info/inful/langdocs/internal/config"
	"git.home.luguber.info/inful/langdocs/internal/history"
	"git.home.luguber.info/inful/langdocs/internal/metrics"
	"git.home.luguber.info/inful/langdocs/internal/notify"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"langdocs.yaml" env:"LANGDOCS_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); overrides logging.format" env:"LANGDOCS_LOG_FORMAT"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build every language into the output directory"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild on source changes"`
	Serve   ServeCmd   `cmd:"" help:"Serve the build output as a JSON API"`
	Unpack  UnpackCmd  `cmd:"" help:"Unpack example bundles into source directories"`
	Todos   TodosCmd   `cmd:"" help:"Report outdated and missing translations"`
	History HistoryCmd `cmd:"" help:"Show recorded builds"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`

	logger *slog.Logger
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	} else if raw := os.Getenv("LANGDOCS_LOG_LEVEL"); raw != "" {
		level = config.NormalizeLogLevel(raw).SlogLevel()
	}
	c.setLogger(level, config.NormalizeLogFormat(c.LogFormat))
	return nil
}

func (c *CLI) setLogger(level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	c.logger = slog.New(handler)
	slog.SetDefault(c.logger)
}

// Logger returns the configured logger.
func (c *CLI) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// loadConfig reads the configuration and lets its logging section take over
// where no flag or environment variable was given.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	} else if raw := os.Getenv("LANGDOCS_LOG_LEVEL"); raw != "" {
		level = config.NormalizeLogLevel(raw).SlogLevel()
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	c.setLogger(level, format)
	return cfg, nil
}

// services owns the collaborators a driver is wired with.
type services struct {
	history   *history.Store
	publisher notify.Publisher
}

func (s *services) Close() {
	if s.history != nil {
		_ = s.history.Close()
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
}

// newDriver wires a build driver from cfg. Failing to open the history or
// to reach NATS is logged and the feature disabled.
func newDriver(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*build.Driver, *services) {
	svc := &services{}
	opts := []build.Option{build.WithLogger(logger), build.WithRecorder(recorder)}

	if cfg.State.History {
		store, err := history.Open(filepath.Join(cfg.State.Directory, history.FileName))
		if err != nil {
			logger.Warn("Build history disabled", "error", err)
		} else {
			svc.history = store
			opts = append(opts, build.WithHistory(store))
		}
	}

	pub, err := notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		logger.Warn("Notifications disabled", "error", err)
	} else {
		svc.publisher = pub
		opts = append(opts, build.WithPublisher(pub))
	}

	return build.New(cfg, opts...), svc
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
