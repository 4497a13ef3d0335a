package envcfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// noDotenv points Load at a file that does not exist.
func noDotenv(t *testing.T) Option {
	return WithDotenv(filepath.Join(t.TempDir(), "absent.env"))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ERRWATCH_API_KEY", "env-key")
	t.Setenv("ERRWATCH_ENDPOINT", "https://errors.example.com")
	t.Setenv("ERRWATCH_ENV", "production")
	t.Setenv("ERRWATCH_FILTER_KEYS", "password,ssn")
	t.Setenv("ERRWATCH_IGNORE", "NetworkError,/^Temp/")
	t.Setenv("ERRWATCH_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("ERRWATCH_SYNC", "true")

	cfg, err := Load(noDotenv(t))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "https://errors.example.com", cfg.Endpoint)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, []string{"password", "ssn"}, cfg.FilterKeys)
	assert.Equal(t, []string{"NetworkError", "/^Temp/"}, cfg.IgnoreRules)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.SyncMode)
	assert.True(t, cfg.Valid())
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(noDotenv(t), WithPrefix("ERRWATCH_TEST_UNSET"))
	require.NoError(t, err)

	assert.Equal(t, errwatch.DefaultMaxQueueSize, cfg.MaxQueueSize)
	assert.Equal(t, errwatch.DefaultSendTimeout, cfg.SendTimeout)
	assert.Equal(t, errwatch.DefaultFilterKeys, cfg.FilterKeys)
	assert.False(t, cfg.Valid(), "missing credentials are not an error")
}

func TestLoad_TOMLFileWithEnvOverride(t *testing.T) {
	path := writeFile(t, "errwatch.toml", `
api_key = "file-key"
endpoint = "https://file.example.com"
env = "staging"
max_queue_size = 5
send_timeout = "2s"
development_environments = ["local"]
`)
	t.Setenv("ERRWATCH_ENV", "production")

	cfg, err := Load(WithFile(path), noDotenv(t))
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "https://file.example.com", cfg.Endpoint)
	assert.Equal(t, "production", cfg.Environment, "environment overrides file")
	assert.Equal(t, 5, cfg.MaxQueueSize)
	assert.Equal(t, 2*time.Second, cfg.SendTimeout)
	assert.Equal(t, []string{"local"}, cfg.DevelopmentEnvironments)
}

func TestLoad_FileFromEnvVar(t *testing.T) {
	path := writeFile(t, "errwatch.toml", `api_key = "from-env-file"`)
	t.Setenv(FileEnvVar, path)

	cfg, err := Load(noDotenv(t))
	require.NoError(t, err)
	assert.Equal(t, "from-env-file", cfg.APIKey)
}

func TestLoad_WithBase(t *testing.T) {
	t.Setenv("ERRWATCH_ENV", "production")

	cfg, err := Load(noDotenv(t), WithBase(errwatch.Config{APIKey: "base-key", Environment: "development"}))
	require.NoError(t, err)

	assert.Equal(t, "base-key", cfg.APIKey)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_Dotenv(t *testing.T) {
	path := writeFile(t, "test.env", "ERRWATCH_DOTENV_PROBE_API_KEY=dotenv-key\nERRWATCH_DOTENV_PROBE_ENV=from-dotenv\n")
	t.Setenv("ERRWATCH_DOTENV_PROBE_ENV", "from-process")
	t.Cleanup(func() { os.Unsetenv("ERRWATCH_DOTENV_PROBE_API_KEY") })

	cfg, err := Load(WithDotenv(path), WithPrefix("ERRWATCH_DOTENV_PROBE"))
	require.NoError(t, err)

	assert.Equal(t, "dotenv-key", cfg.APIKey)
	assert.Equal(t, "from-process", cfg.Environment, "existing variables are not overridden")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) []Option
		want  ConfigErrorType
	}{
		{
			name: "missing file",
			setup: func(t *testing.T) []Option {
				return []Option{WithFile(filepath.Join(t.TempDir(), "missing.toml")), noDotenv(t)}
			},
			want: ErrFile,
		},
		{
			name: "malformed toml",
			setup: func(t *testing.T) []Option {
				return []Option{WithFile(writeFile(t, "bad.toml", "api_key = ")), noDotenv(t)}
			},
			want: ErrFile,
		},
		{
			name: "malformed dotenv",
			setup: func(t *testing.T) []Option {
				return []Option{WithDotenv(writeFile(t, "bad.env", "BAD-KEY=value\n"))}
			},
			want: ErrDotenv,
		},
		{
			name: "bad integer",
			setup: func(t *testing.T) []Option {
				t.Setenv("ERRWATCH_MAX_QUEUE_SIZE", "lots")
				return []Option{noDotenv(t)}
			},
			want: ErrParsing,
		},
		{
			name: "bad duration",
			setup: func(t *testing.T) []Option {
				t.Setenv("ERRWATCH_SEND_TIMEOUT", "soon")
				return []Option{noDotenv(t)}
			},
			want: ErrParsing,
		},
		{
			name: "invalid endpoint",
			setup: func(t *testing.T) []Option {
				t.Setenv("ERRWATCH_ENDPOINT", "not a url")
				return []Option{noDotenv(t)}
			},
			want: ErrValidation,
		},
		{
			name: "negative queue size",
			setup: func(t *testing.T) []Option {
				t.Setenv("ERRWATCH_MAX_QUEUE_SIZE", "-1")
				return []Option{noDotenv(t)}
			},
			want: ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.setup(t)...)
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "error should be a *ConfigError: %v", err)
			assert.Equal(t, tt.want, cfgErr.Type)
			assert.Contains(t, err.Error(), string(tt.want))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(errwatch.Config{}))
	assert.NoError(t, Validate(errwatch.Config{Endpoint: "http://localhost:8080"}))
	assert.Error(t, Validate(errwatch.Config{SendTimeout: -time.Second}))
}

func TestConfigError(t *testing.T) {
	inner := errors.New("inner")
	err := &ConfigError{Type: ErrParsing, Message: "bad", Err: inner}

	assert.Equal(t, "[PARSING_FAILED] bad: inner", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "[VALIDATION_FAILED] only", (&ConfigError{Type: ErrValidation, Message: "only"}).Error())
}
