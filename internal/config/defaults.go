package config

import (
	"time"

	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			LangsDir:          "langs",
			ReferenceLanguage: "en",
		},
		Output: OutputConfig{
			Directory: "build/out",
			DocFormat: langdocs.DocFormatTOC,
			Pretty:    true,
			Clean:     false,
		},
		Markdown: MarkdownConfig{
			HighlightStyle: "github",
			SectionClass:   "mt-10",
			Minify:         true,
			Permalinks:     true,
		},
		Examples: ExamplesConfig{
			Descriptor: "$descriptor.json",
		},
		Build: BuildConfig{
			Concurrency: 4,
		},
		State: StateConfig{
			Directory: ".langdocs",
			History:   true,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Notify: NotifyConfig{
			Subject: "langdocs.rebuild",
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

const initTemplate = `# langdocs configuration
source:
  # One sub-directory per language code (en, fr, pt-BR, ...).
  langs_dir: langs
  # Restrict the build to these languages, e.g. [en, fr]. Unset builds all.
  # languages: [en]
  # Translations are compared against this language by "langdocs todos".
  reference_language: en

output:
  directory: build/out
  # toc writes {"toc", "default"}; sections writes {"sections", "html"}.
  doc_format: toc
  pretty: true
  clean: false

markdown:
  highlight_style: github
  section_class: mt-10
  minify: true
  permalinks: true

examples:
  descriptor: $descriptor.json

build:
  concurrency: 4

state:
  directory: .langdocs
  history: true

watch:
  debounce: 300ms
  # Periodic full rebuild while watching, e.g. 30m. 0 disables it.
  full_rebuild_interval: 0s

notify:
  # nats://localhost:4222 enables rebuild notifications.
  nats_url: ""
  subject: langdocs.rebuild

serve:
  addr: 127.0.0.1:8080

logging:
  level: info
  format: text
`
