package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/alecthomas/chroma/v2/styles"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// Validate checks the configuration and returns a config error listing every
// invalid field.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Source),
		validation.Field(&c.Output),
		validation.Field(&c.Markdown),
		validation.Field(&c.Examples),
		validation.Field(&c.Build),
		validation.Field(&c.Watch),
		validation.Field(&c.Notify),
		validation.Field(&c.Serve),
		validation.Field(&c.Logging),
	)
	if err != nil {
		return lderrors.ConfigError(fmt.Sprintf("invalid configuration: %v", err)).Build()
	}
	return nil
}

var languageTag = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := language.Parse(s); err != nil {
		return validation.NewError("langdocs.config.language", "must be a BCP 47 language tag")
	}
	return nil
})

func (s SourceConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.LangsDir, validation.Required),
		validation.Field(&s.Languages, validation.Each(validation.Required, languageTag)),
		validation.Field(&s.ReferenceLanguage, validation.Required, languageTag),
	)
}

func (o OutputConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Directory, validation.Required),
		validation.Field(&o.DocFormat, validation.Required, validation.In(langdocs.DocFormatTOC, langdocs.DocFormatSections)),
	)
}

func (m MarkdownConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.HighlightStyle, validation.By(func(value any) error {
			name, _ := value.(string)
			if name == "" {
				return nil
			}
			if _, ok := styles.Registry[name]; !ok {
				return validation.NewError("langdocs.config.highlight_style", "unknown highlight style")
			}
			return nil
		})),
	)
}

func (e ExamplesConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Descriptor, validation.Required),
	)
}

func (b BuildConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Concurrency, validation.Min(1), validation.Max(64)),
	)
}

var nonNegativeDuration = validation.By(func(value any) error {
	if d, _ := value.(time.Duration); d < 0 {
		return errors.New("must not be negative")
	}
	return nil
})

func (w WatchConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.Debounce, nonNegativeDuration),
		validation.Field(&w.FullRebuildInterval, nonNegativeDuration),
	)
}

func (n NotifyConfig) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Subject, validation.When(n.NATSURL != "", validation.Required)),
	)
}

func (s ServeConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
		validation.Field(&l.Format, validation.In(LogFormatJSON, LogFormatText)),
	)
}
