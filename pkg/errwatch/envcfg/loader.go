// Package envcfg loads errwatch.Config from a TOML file, a .env file, and the
// process environment.
//
// The loading sequence is:
//  1. Decode the TOML file named by WithFile or ERRWATCH_CONFIG_FILE, if any.
//  2. Load .env files via godotenv (non-fatal if absent). Existing
//     environment variables are never overridden.
//  3. Use envconfig to overlay ERRWATCH_* variables on the struct.
//  4. Validate formats using go-playground/validator.
//  5. Apply defaults.
//
// Missing credentials are not an error: the resulting Client simply does not
// report.
package envcfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// DefaultPrefix is prepended to every variable name, e.g. ERRWATCH_API_KEY.
const DefaultPrefix = "ERRWATCH"

// FileEnvVar names the variable holding the TOML file path.
const FileEnvVar = "ERRWATCH_CONFIG_FILE"

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrFile means the TOML file could not be read or decoded.
	ErrFile ConfigErrorType = "FILE_FAILED"
	// ErrDotenv means a .env file exists but could not be parsed.
	ErrDotenv ConfigErrorType = "DOTENV_FAILED"
	// ErrParsing means an environment variable had the wrong format.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation means a field value is out of range or malformed.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError is a diagnostic error returned by Load.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	prefix      string
	file        string
	dotenvFiles []string
	base        errwatch.Config
}

// WithFile reads the TOML file at path. It takes precedence over FileEnvVar.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = path
	}
}

// WithPrefix changes the variable prefix (default: DefaultPrefix).
func WithPrefix(prefix string) Option {
	return func(l *loader) {
		l.prefix = prefix
	}
}

// WithDotenv loads the given .env files instead of ./.env.
func WithDotenv(paths ...string) Option {
	return func(l *loader) {
		l.dotenvFiles = paths
	}
}

// WithBase starts from cfg instead of the zero Config. File and environment
// values override it.
func WithBase(cfg errwatch.Config) Option {
	return func(l *loader) {
		l.base = cfg
	}
}

// Load builds a Config with defaults applied.
func Load(opts ...Option) (errwatch.Config, error) {
	l := &loader{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(l)
	}

	cfg := l.base

	path := l.file
	if path == "" {
		path = os.Getenv(FileEnvVar)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return errwatch.Config{}, &ConfigError{
				Type:    ErrFile,
				Message: fmt.Sprintf("failed to load config file %s", path),
				Err:     err,
			}
		}
	}

	if err := loadDotenv(l.dotenvFiles); err != nil {
		return errwatch.Config{}, err
	}

	if err := envconfig.Process(l.prefix, &cfg); err != nil {
		return errwatch.Config{}, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := Validate(cfg); err != nil {
		return errwatch.Config{}, err
	}
	return cfg.WithDefaults(), nil
}

// Validate checks field formats: a well-formed endpoint URL and
// non-negative sizes and timeouts.
func Validate(cfg errwatch.Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	return nil
}

// loadDotenv loads .env files. Absent files are skipped.
func loadDotenv(paths []string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return &ConfigError{
			Type:    ErrDotenv,
			Message: fmt.Sprintf("failed to load %s", p),
			Err:     err,
		}
	}
	return nil
}
