// Package config provides configuration management for the leapseries CLI.
//
// Values are layered, lowest to highest: built-in defaults, the
// leapseries.yaml file, LEAPSERIES_ environment variables and explicitly
// set command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Dialect      string        `koanf:"dialect"`
	OutputFormat string        `koanf:"output"`
	LogLevel     string        `koanf:"log_level"`
	LogFormat    string        `koanf:"log_format"`
	Verbose      bool          `koanf:"verbose"`
	StatePath    string        `koanf:"state"`
	Target       *TargetConfig `koanf:"target"`
	Verify       VerifyConfig  `koanf:"verify"`
}

// TargetConfig is the database verify connects to.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	SSLMode  string            `koanf:"sslmode"`
	DSN      string            `koanf:"dsn"`
	Options  map[string]string `koanf:"options"`
}

// VerifyConfig bounds query execution in verify. Record stores every
// run in the state database for the history command.
type VerifyConfig struct {
	Concurrency int           `koanf:"concurrency"`
	Timeout     time.Duration `koanf:"timeout"`
	Record      bool          `koanf:"record"`
}

// AllDialects selects every registered dialect.
const AllDialects = "all"

// Default configuration values.
const (
	DefaultDialect     = "postgres"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
	DefaultTargetType  = "postgres"
	DefaultStatePath   = ".leapseries/state.db"
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
)

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		Dialect:      DefaultDialect,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		StatePath:    DefaultStatePath,
		Target:       &TargetConfig{Type: DefaultTargetType},
		Verify: VerifyConfig{
			Concurrency: DefaultConcurrency,
			Timeout:     DefaultTimeout,
		},
	}
}
