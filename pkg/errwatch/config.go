// config.go defines the client configuration. Loading it from the
// environment or files lives in the envcfg package.

package errwatch

import (
	"slices"
	"time"
)

const (
	// DefaultMaxQueueSize bounds the delivery worker queue.
	DefaultMaxQueueSize = 100

	// DefaultShutdownTimeout bounds how long Shutdown waits for the worker.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultSendTimeout bounds a single Sender call.
	DefaultSendTimeout = 15 * time.Second
)

// DefaultFilterKeys are filtered when Config.FilterKeys is nil.
var DefaultFilterKeys = []string{"password", "password_confirmation", "secret", "token", "api_key", "authorization", "cookie"}

// DefaultDevelopmentEnvironments suppress reporting unless ForceReport is set.
var DefaultDevelopmentEnvironments = []string{"development", "test"}

// Config controls a Client. It is read-only once passed to New.
type Config struct {
	// APIKey is the ingestion credential. Reporting is disabled without it.
	APIKey string `envconfig:"API_KEY" toml:"api_key"`

	// Endpoint is the ingestion base URL. Reporting is disabled without it.
	Endpoint string `envconfig:"ENDPOINT" toml:"endpoint" validate:"omitempty,url"`

	// Environment names the deployment environment (e.g., "production").
	Environment string `envconfig:"ENV" toml:"env"`

	// Root is replaced with [PROJECT_ROOT] in backtrace frames.
	Root string `envconfig:"ROOT" toml:"root"`

	// FilterKeys are redacted from context, request, user, and breadcrumbs.
	// Nil means DefaultFilterKeys.
	FilterKeys []string `envconfig:"FILTER_KEYS" toml:"filter_keys"`

	// IgnoreRules lists error class names, or /regexp/ patterns, to drop.
	IgnoreRules []string `envconfig:"IGNORE" toml:"ignore"`

	// MaxQueueSize bounds the async queue. Zero means DefaultMaxQueueSize.
	MaxQueueSize int `envconfig:"MAX_QUEUE_SIZE" toml:"max_queue_size" validate:"gte=0"`

	// ShutdownTimeout bounds Client.Shutdown. Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" toml:"shutdown_timeout" validate:"gte=0"`

	// SendTimeout bounds one Sender call. Zero means DefaultSendTimeout.
	SendTimeout time.Duration `envconfig:"SEND_TIMEOUT" toml:"send_timeout" validate:"gte=0"`

	// SyncMode disables the delivery worker; every notice is sent inline.
	SyncMode bool `envconfig:"SYNC" toml:"sync"`

	// DevelopmentEnvironments do not report unless ForceReport is set.
	// Nil means DefaultDevelopmentEnvironments.
	DevelopmentEnvironments []string `envconfig:"DEVELOPMENT_ENVIRONMENTS" toml:"development_environments"`

	// ForceReport reports from every environment.
	ForceReport bool `envconfig:"FORCE_REPORT" toml:"force_report"`

	// CaptureSystemState adds memory, goroutine, and host details to context.
	CaptureSystemState bool `envconfig:"CAPTURE_SYSTEM_STATE" toml:"capture_system_state"`
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.FilterKeys == nil {
		c.FilterKeys = slices.Clone(DefaultFilterKeys)
	}
	if c.DevelopmentEnvironments == nil {
		c.DevelopmentEnvironments = slices.Clone(DefaultDevelopmentEnvironments)
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}

// Valid reports whether the credential and endpoint are present.
func (c Config) Valid() bool {
	return c.APIKey != "" && c.Endpoint != ""
}

// ReportsData reports whether notices from the configured environment are sent.
func (c Config) ReportsData() bool {
	if c.ForceReport {
		return true
	}
	envs := c.DevelopmentEnvironments
	if envs == nil {
		envs = DefaultDevelopmentEnvironments
	}
	return !slices.Contains(envs, c.Environment)
}
