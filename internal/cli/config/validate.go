package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/pkg/adapter"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

// Validate checks the dialect, output and logging settings and the verify
// bounds. The target is checked separately by ValidateTarget, since only
// verify connects.
func (c *Config) Validate() error {
	if _, err := c.Dialects(); err != nil {
		return err
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (expected text or json)", c.LogFormat)
	}
	if c.Verify.Concurrency < 1 {
		return fmt.Errorf("verify.concurrency must be at least 1, got %d", c.Verify.Concurrency)
	}
	if c.Verify.Timeout <= 0 {
		return fmt.Errorf("verify.timeout must be positive, got %s", c.Verify.Timeout)
	}
	return nil
}

// Dialects resolves the configured dialect. "all" returns every
// registered dialect in name order.
func (c *Config) Dialects() ([]*dialect.Dialect, error) {
	if strings.EqualFold(c.Dialect, AllDialects) {
		names := dialect.List()
		out := make([]*dialect.Dialect, 0, len(names))
		for _, name := range names {
			out = append(out, dialect.MustGet(name))
		}
		return out, nil
	}
	d, err := dialect.Lookup(c.Dialect)
	if err != nil {
		return nil, fmt.Errorf("dialect: %w", err)
	}
	return []*dialect.Dialect{d}, nil
}

// Level parses log_level. Verbose lowers it to debug.
func (c *Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return l, nil
}

// NewLogger builds the CLI logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ErrTargetTypeRequired is returned for a target without a type.
var ErrTargetTypeRequired = errors.New("target type is required")

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return ErrTargetTypeRequired
	}
	name := strings.ToLower(t.Type)
	if !adapter.IsRegistered(name) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	if dn, _ := adapter.DialectOf(name); dn != "" {
		if _, ok := dialect.Get(dn); !ok {
			return fmt.Errorf("adapter %s renders for unregistered dialect %q", name, dn)
		}
	}
	return nil
}

// AdapterConfig converts the target into adapter connection settings.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	opts := make(map[string]string, len(t.Options)+1)
	for k, v := range t.Options {
		opts[k] = v
	}
	if t.SSLMode != "" {
		opts["sslmode"] = t.SSLMode
	}
	return adapter.Config{
		Type:     strings.ToLower(t.Type),
		DSN:      t.DSN,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  opts,
	}
}
