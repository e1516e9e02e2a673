package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler used for output.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logger settings loaded from the environment.
type Config struct {
	Service string `env:"LOG_SERVICE" envDefault:"featurelimits"`
	Env     string `env:"APP_ENV" envDefault:"development"` // development, staging or production
	Level   string `env:"LOG_LEVEL"`                         // overrides the environment default when set
	Format  string `env:"LOG_FORMAT"`                        // overrides the environment default when set
}

// profile is the level and format an environment starts from.
type profile struct {
	name   string
	level  slog.Level
	format Format
}

var (
	development = profile{"development", slog.LevelDebug, FormatText}
	staging     = profile{"staging", slog.LevelInfo, FormatJSON}
	production  = profile{"production", slog.LevelInfo, FormatJSON}
)

var profiles = map[string]profile{
	"development": development,
	"dev":         development,
	"staging":     staging,
	"stage":       staging,
	"production":  production,
	"prod":        production,
}

// Option configures logger creation.
type Option func(*options)

type options struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

func WithLevel(l slog.Level) Option {
	return func(o *options) { o.level = l }
}

// WithFormat sets the output format. It panics on anything but FormatJSON or
// FormatText.
func WithFormat(f Format) Option {
	if f != FormatJSON && f != FormatText {
		panic(fmt.Errorf("logger: unknown format %q", f))
	}
	return func(o *options) { o.format = f }
}

// WithOutput redirects output. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithContextExtractors registers functions that add attributes found in the
// record's context.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) { o.extractors = append(o.extractors, extractors...) }
}

// WithEnvironment applies the level and format of env and tags records with
// the service and environment names. Unknown environments use the development
// profile.
func WithEnvironment(env, service string) Option {
	p, ok := profiles[strings.ToLower(env)]
	if !ok {
		p = development
	}
	return func(o *options) {
		o.level = p.level
		o.format = p.format
		if service != "" {
			o.attrs = append(o.attrs, slog.String("service", service))
		}
		o.attrs = append(o.attrs, slog.String("env", p.name))
	}
}

func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// New returns a logger writing JSON at info level to stdout unless options
// say otherwise.
func New(opts ...Option) *slog.Logger {
	o := &options{level: slog.LevelInfo, format: FormatJSON, output: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	ho := &slog.HandlerOptions{Level: o.level}
	var h slog.Handler = slog.NewJSONHandler(o.output, ho)
	if o.format == FormatText {
		h = slog.NewTextHandler(o.output, ho)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	return slog.New(newContextHandler(h, o.extractors...))
}

// FromConfig builds a logger from cfg followed by opts. Unparsable Level and
// Format values are ignored.
func FromConfig(cfg Config, opts ...Option) *slog.Logger {
	all := []Option{WithEnvironment(cfg.Env, cfg.Service)}
	if cfg.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err == nil {
			all = append(all, WithLevel(level))
		}
	}
	if f := Format(strings.ToLower(cfg.Format)); f == FormatJSON || f == FormatText {
		all = append(all, WithFormat(f))
	}
	return New(append(all, opts...)...)
}
